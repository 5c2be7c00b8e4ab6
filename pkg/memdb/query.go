package memdb

import "strings"

// QueryOptions bundles the filters applied to a similarity query on top
// of the raw nearest-neighbor search. All fields but MinReward and TopK
// are optional; an absent filter is vacuously true for every episode.
type QueryOptions struct {
	MinReward    float32
	TopK         int
	TagsAny      []string
	TagsAll      []string
	TaskIDPrefix *string
	TimeAfter    *int64
	TimeBefore   *int64
	Source       *string
	UserID       *string
}

// NewQueryOptions builds the simple min_reward/top_k form; all
// structural filters are left unset.
func NewQueryOptions(minReward float32, topK int) QueryOptions {
	return QueryOptions{MinReward: minReward, TopK: topK}
}

// hasStructuralFilter reports whether any filter beyond MinReward/TopK
// is set. Used to decide the candidate oversampling multiplier.
func (o QueryOptions) hasStructuralFilter() bool {
	return o.TagsAny != nil || o.TagsAll != nil || o.TaskIDPrefix != nil ||
		o.TimeAfter != nil || o.TimeBefore != nil || o.Source != nil || o.UserID != nil
}

// Matches reports whether episode ep satisfies every filter in o.
func (o QueryOptions) Matches(ep *Episode) bool {
	if ep.Reward < o.MinReward {
		return false
	}
	if o.TagsAny != nil {
		any := false
		for _, t := range o.TagsAny {
			if hasTag(ep.Tags, t) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	if o.TagsAll != nil {
		for _, t := range o.TagsAll {
			if !hasTag(ep.Tags, t) {
				return false
			}
		}
	}
	if o.TaskIDPrefix != nil {
		if !strings.HasPrefix(ep.TaskID, *o.TaskIDPrefix) {
			return false
		}
	}
	if o.TimeAfter != nil {
		if ep.Timestamp == nil || *ep.Timestamp < *o.TimeAfter {
			return false
		}
	}
	if o.TimeBefore != nil {
		if ep.Timestamp == nil || *ep.Timestamp > *o.TimeBefore {
			return false
		}
	}
	if o.Source != nil {
		if ep.Source == nil || *ep.Source != *o.Source {
			return false
		}
	}
	if o.UserID != nil {
		if ep.UserID == nil || *ep.UserID != *o.UserID {
			return false
		}
	}
	return true
}
