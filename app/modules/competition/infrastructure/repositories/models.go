package competitiondb

import (
	"time"

	sharedtypes "github.com/42core-team/arena/app/shared/types"
	"github.com/uptrace/bun"
)

// Event is a competition event. Its state decides which phase is running.
type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID           sharedtypes.EventID    `bun:"id,pk,type:uuid"`
	Name         string                 `bun:"name,notnull"`
	State        sharedtypes.EventState `bun:"state,notnull"`
	CurrentRound int                    `bun:"current_round,notnull,default:0"`
	CreatedAt    time.Time              `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time              `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Team is a participant of an event.
type Team struct {
	bun.BaseModel `bun:"table:teams,alias:t"`

	ID             sharedtypes.TeamID  `bun:"id,pk,type:uuid"`
	EventID        sharedtypes.EventID `bun:"event_id,type:uuid,notnull"`
	Name           string              `bun:"name,notnull"`
	Repo           string              `bun:"repo"`
	Locked         bool                `bun:"locked,notnull,default:false"`
	Score          int                 `bun:"score,notnull,default:0"`
	BuchholzPoints int                 `bun:"buchholz_points,notnull,default:0"`
	QueueScore     int                 `bun:"queue_score,notnull,default:1000"`
	InQueue        bool                `bun:"in_queue,notnull,default:false"`
	HadBye         bool                `bun:"had_bye,notnull,default:false"`
	CreatedAt      time.Time           `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time           `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
