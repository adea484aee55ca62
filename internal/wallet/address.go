package wallet

import "github.com/ethereum/go-ethereum/common"

// ChecksumAddress normalizes a hex address to its EIP-55 checksummed form.
func ChecksumAddress(s string) string {
	return common.HexToAddress(s).Hex()
}
