package content

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"course-dashboard/internal/domain"
)

// ErrUnknownAction is returned for action ids that were never issued or
// were already consumed.
var ErrUnknownAction = errors.New("content: unknown action")

// Action is the "start" affordance attached to a fallback view.
type Action struct {
	ID         string      `json:"id"`
	Label      string      `json:"label"`
	ActivityID int         `json:"activityId"`
	CourseID   int         `json:"courseId"`
	Kind       domain.Kind `json:"kind"`
	// URL opens the activity on the LMS when the retry fails.
	URL string `json:"url"`
}

// Registry holds the actions handed out with fallback views. One activity
// has at most one live action.
type Registry struct {
	mu         sync.Mutex
	byID       map[string]registered
	byActivity map[int]string
}

type registered struct {
	action   Action
	activity domain.ActivityNode
}

func NewRegistry() *Registry {
	return &Registry{
		byID:       map[string]registered{},
		byActivity: map[int]string{},
	}
}

// Register returns the action for a, reusing the live one if present.
func (r *Registry) Register(a domain.ActivityNode, url string) Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byActivity[a.ID]; ok {
		reg := r.byID[id]
		reg.activity = a
		reg.action.URL = url
		r.byID[id] = reg
		return reg.action
	}
	act := Action{
		ID:         uuid.NewString(),
		Label:      "Start",
		ActivityID: a.ID,
		CourseID:   a.CourseID,
		Kind:       a.Kind,
		URL:        url,
	}
	r.byID[act.ID] = registered{action: act, activity: a}
	r.byActivity[a.ID] = act.ID
	return act
}

// Lookup returns the action and the activity it was issued for.
func (r *Registry) Lookup(id string) (Action, domain.ActivityNode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.byID[id]
	if !ok {
		return Action{}, domain.ActivityNode{}, ErrUnknownAction
	}
	return reg.action, reg.activity, nil
}

// Remove drops the action of an activity, if any.
func (r *Registry) Remove(activityID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byActivity[activityID]; ok {
		delete(r.byID, id)
		delete(r.byActivity, activityID)
	}
}

// Len is the number of live actions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
