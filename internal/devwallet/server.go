package devwallet

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/quantumauth-io/prediction-market-client/internal/constants"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

type ServerConfig struct {
	Host string
	Port string

	// Browser origins allowed to call the wallet. Empty disables CORS.
	AllowedOrigins []string
}

// Server exposes a Wallet over HTTP on loopback.
type Server struct {
	wallet *Wallet
	rpc    *rpc.Server
	engine *gin.Engine
	http   *http.Server
}

func NewServer(w *Wallet, cfg ServerConfig) (*Server, error) {
	rpcSrv, err := NewRPCServer(w)
	if err != nil {
		return nil, err
	}

	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = constants.DefaultWalletHost
	}
	port := strings.TrimSpace(cfg.Port)
	if port == "" {
		port = constants.DefaultWalletPort
	}

	s := &Server{
		wallet: w,
		rpc:    rpcSrv,
	}
	s.engine = s.newRouter(normalizeOrigins(cfg.AllowedOrigins))
	s.http = &http.Server{
		Addr:              net.JoinHostPort(host, port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.engine }

// RPC returns the JSON-RPC server, usable in-process with rpc.DialInProc.
func (s *Server) RPC() *rpc.Server { return s.rpc }

func (s *Server) Addr() string { return s.http.Addr }

func (s *Server) newRouter(origins []string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	if len(origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       10 * time.Minute,
		}))
	}

	r.Use(loopbackOnly())

	r.GET("/health", s.handleHealth)
	r.GET("/status", s.handleStatus)
	r.POST(constants.WalletRPCPath, gin.WrapH(s.rpc))

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.wallet.Status())
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("devwallet listening", "addr", s.http.Addr, "account", s.wallet.Address().Hex())
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return errors.Wrap(err, "devwallet http server")
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	s.rpc.Stop()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		log.Error("devwallet shutdown failed", "error", err)
		return errors.Wrap(err, "shutdown")
	}
	log.Info("devwallet gracefully stopped")
	return nil
}

func loopbackOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isLoopbackRequest(c.Request) || !isSafeLocalHost(c.Request.Host) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Writer.Status() >= http.StatusBadRequest {
			log.Warn("devwallet request",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"status", c.Writer.Status(),
				"took", time.Since(start).String(),
			)
		}
	}
}

func isLoopbackRequest(r *http.Request) bool {
	ra := r.RemoteAddr

	h, _, err := net.SplitHostPort(ra)
	if err != nil {
		ip := net.ParseIP(ra)
		return ip != nil && ip.IsLoopback()
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}

func isSafeLocalHost(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	host = strings.Trim(strings.ToLower(host), "[]")
	return host == "127.0.0.1" || host == "localhost" || host == "::1"
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, raw := range in {
		o := normalizeOrigin(raw)
		if o == "" {
			continue
		}
		if _, ok := seen[o]; ok {
			continue
		}
		seen[o] = struct{}{}
		out = append(out, o)
	}
	return out
}

func normalizeOrigin(in string) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return ""
	}
	u, err := url.Parse(in)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}
