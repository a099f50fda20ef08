// Package manage binds each entity's REST calls to cache keys and to the
// keys its mutations invalidate. Views read through the queries and write
// through the mutations; nothing here holds authoritative state.
package manage

import (
	"context"

	"go.uber.org/zap"

	"github.com/kidandcat/portfolio/internal/client"
	"github.com/kidandcat/portfolio/internal/logger"
	"github.com/kidandcat/portfolio/internal/mutation"
	"github.com/kidandcat/portfolio/internal/notify"
	"github.com/kidandcat/portfolio/internal/query"
)

type Deps struct {
	API    *client.Client
	Cache  *query.Cache
	Notify notify.Notifier
	Log    *zap.SugaredLogger
}

func (d Deps) normalize() Deps {
	if d.Cache == nil {
		d.Cache = query.NewCache(d.Log)
	}
	if d.Notify == nil {
		d.Notify = notify.Discard{}
	}
	d.Log = logger.OrNop(d.Log)
	return d
}

// Cache keys.

func UsersKey() query.Key { return query.K("users") }
func RolesKey() query.Key { return query.K("roles") }
func ProjectsKey() query.Key { return query.K("projects") }
func ProjectKey(id int64) query.Key { return query.K("project", id) }
func BacklogsKey(projectID int64) query.Key { return query.K("backlogs", "project", projectID) }
func BacklogKey(id int64) query.Key { return query.K("backlog", id) }
func UserStoriesKey(backlogID int64) query.Key { return query.K("userStories", backlogID) }

// storyKeys are the caches that embed a backlog's stories or their count.
func storyKeys(projectID, backlogID int64) []query.Key {
	return []query.Key{UserStoriesKey(backlogID), BacklogKey(backlogID), BacklogsKey(projectID)}
}

func newMutation[In, Out any](
	d Deps,
	name, success, fallback string,
	do func(ctx context.Context, in In) (Out, error),
	invalidates func(in In, out Out) []query.Key,
) *mutation.Mutation[In, Out] {
	return &mutation.Mutation[In, Out]{
		Name:        name,
		Do:          do,
		Invalidates: invalidates,
		Success:     success,
		Fallback:    fallback,
		Cache:       d.Cache,
		Notify:      d.Notify,
		Log:         d.Log,
	}
}

// Nothing is the output of mutations whose response has no body.
type Nothing struct{}

func noBody(err error) (Nothing, error) { return Nothing{}, err }
