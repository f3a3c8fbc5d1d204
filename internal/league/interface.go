package league

import (
	"context"
	"time"
)

// Store is the durable log of players, events and matches.
type Store interface {
	ListPlayers(ctx context.Context) ([]Player, error)
	GetPlayer(ctx context.Context, id int64) (*Player, error)
	CreatePlayer(ctx context.Context, name, country string) (*Player, error)
	// FindOrCreatePlayer looks a player up by name and creates it when missing.
	FindOrCreatePlayer(ctx context.Context, name string) (*Player, error)
	UpdatePlayer(ctx context.Context, player Player) (*Player, error)
	DeletePlayer(ctx context.Context, id int64) error

	// ListEvents returns every event, newest first, with its matches.
	ListEvents(ctx context.Context) ([]Event, error)
	// ListUnrankedEvents returns, oldest first, the events holding at least
	// one match without a rating delta.
	ListUnrankedEvents(ctx context.Context) ([]Event, error)
	GetEvent(ctx context.Context, id int64) (*Event, error)
	CreateEvent(ctx context.Context, title string, date time.Time) (*Event, error)
	DeleteEvent(ctx context.Context, id int64) error

	CreateMatch(ctx context.Context, match NewMatch) (*Match, error)
	DeleteMatch(ctx context.Context, id int64) error
}
