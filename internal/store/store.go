// Package store persists the two lasttab records: the settings record and
// the MRU tab stack. Records are JSON values keyed by name.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/atomicstack/lasttab/internal/host"
	"github.com/atomicstack/lasttab/internal/settings"
)

const (
	RecordSettings = "settings"
	RecordTabStack = "tabStack"
)

// Store is the persistence contract used by the controller.
type Store interface {
	LoadSettings(ctx context.Context) (settings.Settings, error)
	SaveSettings(ctx context.Context, s settings.Settings) error
	LoadStack(ctx context.Context) ([]host.TabRef, error)
	SaveStack(ctx context.Context, refs []host.TabRef) error
	Close() error
}

// records is the raw key/value layer beneath a Store.
type records interface {
	get(ctx context.Context, name string) ([]byte, bool, error)
	put(ctx context.Context, name string, value []byte) error
}

// codec implements the Store record encoding on top of a records backend.
type codec struct {
	backend records
}

func (c codec) LoadSettings(ctx context.Context) (settings.Settings, error) {
	raw, ok, err := c.backend.get(ctx, RecordSettings)
	if err != nil {
		return settings.Defaults(), fmt.Errorf("load settings: %w", err)
	}
	if !ok {
		return settings.Defaults(), nil
	}
	return settings.Decode(raw)
}

func (c codec) SaveSettings(ctx context.Context, s settings.Settings) error {
	raw, err := s.Encode()
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := c.backend.put(ctx, RecordSettings, raw); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (c codec) LoadStack(ctx context.Context) ([]host.TabRef, error) {
	raw, ok, err := c.backend.get(ctx, RecordTabStack)
	if err != nil {
		return nil, fmt.Errorf("load tab stack: %w", err)
	}
	if !ok || len(raw) == 0 {
		return nil, nil
	}
	var refs []host.TabRef
	if err := json.Unmarshal(raw, &refs); err != nil {
		return nil, fmt.Errorf("decode tab stack: %w", err)
	}
	return refs, nil
}

func (c codec) SaveStack(ctx context.Context, refs []host.TabRef) error {
	if refs == nil {
		refs = []host.TabRef{}
	}
	raw, err := json.Marshal(refs)
	if err != nil {
		return fmt.Errorf("encode tab stack: %w", err)
	}
	if err := c.backend.put(ctx, RecordTabStack, raw); err != nil {
		return fmt.Errorf("save tab stack: %w", err)
	}
	return nil
}
