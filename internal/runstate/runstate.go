// Package runstate persists the last successful submission per account.
package runstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Submission struct {
	RunID         string    `json:"run_id"`
	Network       string    `json:"network"`
	ChainID       int64     `json:"chain_id"`
	Exchange      string    `json:"exchange"`
	Account       string    `json:"account"`
	RotationIndex int       `json:"rotation_index"`
	BuyToken      uint16    `json:"buy_token"`
	SellToken     uint16    `json:"sell_token"`
	GasPriceWei   string    `json:"gas_price_wei"`
	TxHash        string    `json:"tx_hash"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// Matches reports whether s was recorded for the same deployment and account.
func (s Submission) Matches(chainID int64, exchange, account string) bool {
	return s.ChainID == chainID &&
		strings.EqualFold(s.Exchange, exchange) &&
		strings.EqualFold(s.Account, account)
}

// Load returns the recorded submission. A blank path or missing file yields ok=false.
func Load(path string) (Submission, bool, error) {
	if strings.TrimSpace(path) == "" {
		return Submission{}, false, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Submission{}, false, nil
		}
		return Submission{}, false, err
	}

	var s Submission
	if err := json.Unmarshal(b, &s); err != nil {
		return Submission{}, false, fmt.Errorf("parse run state %s: %w", path, err)
	}
	return s, true, nil
}

// Save writes s atomically via a temp file and rename.
func Save(path string, s Submission) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
