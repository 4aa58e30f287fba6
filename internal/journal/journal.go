// Package journal appends one JSON line per auction run step so that runs can be audited later.
package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindStarted   Kind = "started"
	KindSubmitted Kind = "submitted"
	KindDryRun    Kind = "dry_run"
	KindFailed    Kind = "failed"
)

// Event is a single journal record. Amounts and prices are decimal strings.
type Event struct {
	RunID   string    `json:"run_id"`
	Time    time.Time `json:"time"`
	Kind    Kind      `json:"kind"`
	Network string    `json:"network,omitempty"`
	Account string    `json:"account,omitempty"`

	RotationIndex *int   `json:"rotation_index,omitempty"`
	BuyToken      string `json:"buy_token,omitempty"`
	SellToken     string `json:"sell_token,omitempty"`
	OraclePrice   string `json:"oracle_price,omitempty"`
	PostedPrice   string `json:"posted_price,omitempty"`
	BuyAmount     string `json:"buy_amount,omitempty"`
	SellAmount    string `json:"sell_amount,omitempty"`
	GasPriceWei   string `json:"gas_price_wei,omitempty"`
	TxHash        string `json:"tx_hash,omitempty"`

	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Journal is safe for concurrent use. A nil *Journal discards records.
type Journal struct {
	mu    sync.Mutex
	path  string
	runID string
	now   func() time.Time
	file  *os.File
	w     *bufio.Writer
}

// Open returns a journal appending to path under a fresh run id, or nil for a blank path.
// The file is created lazily on the first record.
func Open(path string) *Journal {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	return &Journal{path: path, runID: uuid.NewString(), now: time.Now}
}

func (j *Journal) RunID() string {
	if j == nil {
		return ""
	}
	return j.runID
}

func (j *Journal) openLocked() error {
	if j.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	j.file = f
	j.w = bufio.NewWriterSize(f, 32*1024)
	return nil
}

// Record stamps e with the run id and time, then appends and flushes it.
func (j *Journal) Record(e Event) error {
	if j == nil {
		return nil
	}
	if e.Kind == "" {
		return fmt.Errorf("journal: event kind required")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	e.RunID = j.runID
	if e.Time.IsZero() {
		e.Time = j.now().UTC()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := j.openLocked(); err != nil {
		return fmt.Errorf("journal open %s: %w", j.path, err)
	}
	if _, err := j.w.Write(b); err != nil {
		return err
	}
	if err := j.w.WriteByte('\n'); err != nil {
		return err
	}
	return j.w.Flush()
}

func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	var firstErr error
	if j.w != nil {
		if err := j.w.Flush(); err != nil {
			firstErr = err
		}
	}
	if j.file != nil {
		if err := j.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	j.w = nil
	j.file = nil

	if firstErr != nil && errors.Is(firstErr, os.ErrClosed) {
		return nil
	}
	return firstErr
}

// ReadAll decodes every record in the journal at path.
func ReadAll(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Event
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var e Event
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("journal %s line %d: %w", path, line, err)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
