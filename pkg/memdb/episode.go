// Package memdb implements an embeddable episodic memory store for
// learning agents: Episode records keyed by vector embedding, with
// exact and approximate nearest-neighbor backends and an optional
// disk-backed durable variant.
package memdb

import (
	"github.com/google/uuid"
)

// EpisodeStep records a single step in an agent trajectory, optionally
// attached to an Episode alongside its episode-level summary reward.
type EpisodeStep struct {
	Index       uint32  `json:"index"`
	Action      string  `json:"action"`
	Observation string  `json:"observation"`
	StepReward  float32 `json:"step_reward"`
}

// Episode is a single recorded agent experience: a state embedding, a
// scalar reward, and optional categorical metadata used for filtering.
type Episode struct {
	ID             uuid.UUID     `json:"id"`
	TaskID         string        `json:"task_id"`
	StateEmbedding []float32     `json:"state_embedding"`
	Reward         float32       `json:"reward"`
	Metadata       any           `json:"metadata"`
	Steps          []EpisodeStep `json:"steps,omitempty"`
	Timestamp      *int64        `json:"timestamp,omitempty"`
	Tags           []string      `json:"tags,omitempty"`
	Source         *string       `json:"source,omitempty"`
	UserID         *string       `json:"user_id,omitempty"`
}

// NewEpisode constructs an Episode with a fresh random id and no
// optional fields set.
func NewEpisode(taskID string, embedding []float32, reward float32) Episode {
	return Episode{
		ID:             uuid.New(),
		TaskID:         taskID,
		StateEmbedding: embedding,
		Reward:         reward,
	}
}

// WithTimestamp returns ep with Timestamp set to the given Unix-ms value.
func (ep Episode) WithTimestamp(ts int64) Episode {
	ep.Timestamp = &ts
	return ep
}

// WithTags returns ep with Tags set.
func (ep Episode) WithTags(tags []string) Episode {
	ep.Tags = tags
	return ep
}

// WithSource returns ep with Source set.
func (ep Episode) WithSource(source string) Episode {
	ep.Source = &source
	return ep
}

// WithUserID returns ep with UserID set.
func (ep Episode) WithUserID(userID string) Episode {
	ep.UserID = &userID
	return ep
}

// hasTag reports whether ep carries tag t. Membership is tested
// linearly; duplicate tags are tolerated.
func hasTag(tags []string, t string) bool {
	for _, got := range tags {
		if got == t {
			return true
		}
	}
	return false
}
