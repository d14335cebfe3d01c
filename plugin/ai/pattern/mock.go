package pattern

import (
	"context"

	"github.com/postpilot/postpilot/store"
)

// MockEpisodeStore serves canned episodic memories for tests. It applies the
// same filters the real store applies so detector windowing is exercised.
type MockEpisodeStore struct {
	Episodes []*store.EpisodicMemory
	Err      error
}

var _ EpisodeStore = (*MockEpisodeStore)(nil)

func (m *MockEpisodeStore) ListEpisodicMemories(_ context.Context, find *store.FindEpisodicMemory) ([]*store.EpisodicMemory, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	list := make([]*store.EpisodicMemory, 0)
	for _, e := range m.Episodes {
		if find.OrgID != nil && e.OrgID != *find.OrgID {
			continue
		}
		if find.EventType != nil && e.EventType != *find.EventType {
			continue
		}
		if find.Platform != nil && e.Platform != *find.Platform {
			continue
		}
		if find.CreatedAfter != nil && e.CreatedAt.Before(*find.CreatedAfter) {
			continue
		}
		list = append(list, e)
		if find.Limit > 0 && len(list) >= find.Limit {
			break
		}
	}
	return list, nil
}
