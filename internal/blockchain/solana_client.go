package blockchain

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// SolanaClient verifies on-chain deposit transactions and wallet
// addresses. The internal ledger is the source of truth; this client is
// glue for callers that settle entry fees on chain first.
type SolanaClient struct {
	rpcClient *rpc.Client
	network   string
}

// NewSolanaClient creates a client for the given network
func NewSolanaClient(network string) *SolanaClient {
	var rpcURL string
	switch network {
	case "mainnet-beta":
		rpcURL = "https://api.mainnet-beta.solana.com"
	case "testnet":
		rpcURL = "https://api.testnet.solana.com"
	default:
		rpcURL = "https://api.devnet.solana.com"
	}

	return &SolanaClient{
		rpcClient: rpc.New(rpcURL),
		network:   network,
	}
}

// ValidateWalletAddress reports whether the address is a well-formed
// Solana public key
func (s *SolanaClient) ValidateWalletAddress(address string) bool {
	_, err := solana.PublicKeyFromBase58(address)
	return err == nil
}

// VerifyTransaction checks that a transaction signature exists on chain,
// did not fail, and has reached at least minConfirmations
func (s *SolanaClient) VerifyTransaction(ctx context.Context, signature string, minConfirmations uint64) (bool, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return false, fmt.Errorf("invalid signature format: %w", err)
	}

	resp, err := s.rpcClient.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return false, fmt.Errorf("failed to get signature status: %w", err)
	}

	if len(resp.Value) == 0 || resp.Value[0] == nil {
		return false, nil
	}

	status := resp.Value[0]
	if status.Err != nil {
		return false, nil
	}

	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusFinalized, rpc.ConfirmationStatusConfirmed:
		return true, nil
	}

	if status.Confirmations != nil && *status.Confirmations >= minConfirmations {
		return true, nil
	}

	return false, nil
}
