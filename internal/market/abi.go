package market

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// DefaultContract is the prediction market deployed on Sapphire testnet.
const DefaultContract = "0x42dB46bD5EaF31e0E3DD2acd3324978EdD14965c"

const marketABIJSON = `[
	{
		"inputs": [{"internalType": "bool", "name": "_prediction", "type": "bool"}],
		"name": "placeBet",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	}
]`

var marketABI = mustParseABI(marketABIJSON)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// PackPlaceBet returns the calldata for placeBet(bool).
func PackPlaceBet(outcome bool) ([]byte, error) {
	return marketABI.Pack("placeBet", outcome)
}
