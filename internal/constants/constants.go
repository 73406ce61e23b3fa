package constants

import "time"

const (
	AppName      = "prediction-market"
	KeystoreFile = "devwallet_key.json"
	ChainsFile   = "chains.json"
	ConfigFile   = "config.yaml"

	SchemaV1      = 1
	FilePerm      = 0o600
	DirectoryPerm = 0o700

	// AAD for the dev wallet keystore (must match on decrypt).
	KeystoreAAD = "prediction-market:devwallet:v1"

	// Selects an env subfolder under the config dir (local, develop, prod).
	EnvVar = "PM_ENV"
)

// Provider (EIP-1193) method names
const (
	MethodEthAccounts              = "eth_accounts"
	MethodEthRequestAccounts       = "eth_requestAccounts"
	MethodEthChainID               = "eth_chainId"
	MethodEthSendTransaction       = "eth_sendTransaction"
	MethodEthGetTransactionReceipt = "eth_getTransactionReceipt"
	MethodWalletSwitchChain        = "wallet_switchEthereumChain"
	MethodWalletAddChain           = "wallet_addEthereumChain"
	MethodWalletRevokePermissions  = "wallet_revokePermissions"
)

// Provider error codes (EIP-1193 / EIP-3085 / EIP-3326)
const (
	ProviderErrorCodeUserRejected      = 4001
	ProviderErrorCodeUnauthorized      = 4100
	ProviderErrorCodeUnrecognizedChain = 4902
)

// JSON-RPC error codes (EIP-1474 style)
const (
	JSONRPCErrorCodeInvalidParams       = -32602
	JSONRPCErrorCodeInternalError       = -32603
	JSONRPCErrorCodeResourceUnavailable = -32002
)

// Dev wallet server
const (
	DefaultWalletHost = "127.0.0.1"
	DefaultWalletPort = "6140"
	WalletRPCPath     = "/rpc"

	ShutdownTimeout = 5 * time.Second
)

// Receipt polling
const (
	ReceiptPollInterval    = 2 * time.Second
	MinReceiptPollInterval = 10 * time.Millisecond
	ReceiptWaitTimeout     = 2 * time.Minute
)
