package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"mcptoolbox/internal/log"
	"mcptoolbox/internal/model"
	"mcptoolbox/internal/store"
)

const (
	DefaultBugListLimit = 20
	MaxBugListLimit     = 100

	bugKeyPrefix = "bug:"
)

// BugService tracks bug reports, their comments and status history.
type BugService struct {
	store store.Store
	now   func() time.Time
	newID func() string
	mu    sync.Mutex
}

func NewBugService(s store.Store) *BugService {
	return &BugService{
		store: s,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.NewString() },
	}
}

func bugKey(id string) string {
	return bugKeyPrefix + id
}

func parseSeverity(raw string) (model.Severity, error) {
	s := model.Severity(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range model.Severities {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown severity %q (expected low, medium, high or critical)", ErrInvalidInput, raw)
}

func parseBugStatus(raw string) (model.BugStatus, error) {
	s := model.BugStatus(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range model.BugStatuses {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, raw)
}

func parseBugID(raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: bug_id %q is not a UUID", ErrInvalidInput, raw)
	}
	return id.String(), nil
}

func (s *BugService) load(ctx context.Context, ns store.Namespace, id string) (*model.Bug, error) {
	raw, err := s.store.Get(ctx, ns, bugKey(id))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: bug %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load bug %s: %w", id, err)
	}
	var bug model.Bug
	if err := json.Unmarshal(raw, &bug); err != nil {
		return nil, fmt.Errorf("decode bug %s: %w", id, err)
	}
	if bug.Comments == nil {
		bug.Comments = []model.BugComment{}
	}
	if bug.History == nil {
		bug.History = []model.BugStatusChange{}
	}
	return &bug, nil
}

func (s *BugService) save(ctx context.Context, ns store.Namespace, bug *model.Bug) error {
	raw, err := json.Marshal(bug)
	if err != nil {
		return fmt.Errorf("encode bug %s: %w", bug.ID, err)
	}
	if err := s.store.Set(ctx, ns, bugKey(bug.ID), raw); err != nil {
		return fmt.Errorf("save bug %s: %w", bug.ID, err)
	}
	return nil
}

// Submit files a new bug with status "new".
func (s *BugService) Submit(ctx context.Context, ns store.Namespace, title, description, severity, appName string) (*model.Bug, error) {
	title = strings.TrimSpace(title)
	appName = strings.TrimSpace(appName)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if appName == "" {
		return nil, fmt.Errorf("%w: app_name is required", ErrInvalidInput)
	}
	sev, err := parseSeverity(severity)
	if err != nil {
		return nil, err
	}

	now := s.now()
	bug := &model.Bug{
		ID:          s.newID(),
		Title:       title,
		Description: description,
		Severity:    sev,
		AppName:     appName,
		Status:      model.BugNew,
		ReporterID:  ns.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Comments:    []model.BugComment{},
		History:     []model.BugStatusChange{},
	}
	if err := s.save(ctx, ns, bug); err != nil {
		return nil, err
	}

	log.Logger.Info("bug submitted",
		zap.String("bug_id", bug.ID),
		zap.String("severity", string(sev)),
		zap.String("app_name", appName),
		zap.String("user_id", ns.UserID),
	)
	return bug, nil
}

// List returns bugs matching the filters, newest first. A non-positive limit
// selects the default.
func (s *BugService) List(ctx context.Context, ns store.Namespace, status, severity, appName string, limit int) (*model.BugList, error) {
	filters := model.BugFilters{AppName: strings.TrimSpace(appName), Limit: limit}
	if filters.Limit <= 0 {
		filters.Limit = DefaultBugListLimit
	}
	if filters.Limit > MaxBugListLimit {
		filters.Limit = MaxBugListLimit
	}
	if status != "" {
		st, err := parseBugStatus(status)
		if err != nil {
			return nil, err
		}
		filters.Status = st
	}
	if severity != "" {
		sev, err := parseSeverity(severity)
		if err != nil {
			return nil, err
		}
		filters.Severity = sev
	}

	raws, err := s.store.List(ctx, ns, bugKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list bugs: %w", err)
	}

	bugs := make([]model.Bug, 0, len(raws))
	for _, raw := range raws {
		var bug model.Bug
		if err := json.Unmarshal(raw, &bug); err != nil {
			return nil, fmt.Errorf("decode bug: %w", err)
		}
		if filters.Status != "" && bug.Status != filters.Status {
			continue
		}
		if filters.Severity != "" && bug.Severity != filters.Severity {
			continue
		}
		if filters.AppName != "" && !strings.EqualFold(bug.AppName, filters.AppName) {
			continue
		}
		if bug.Comments == nil {
			bug.Comments = []model.BugComment{}
		}
		if bug.History == nil {
			bug.History = []model.BugStatusChange{}
		}
		bugs = append(bugs, bug)
	}

	sort.SliceStable(bugs, func(i, j int) bool {
		if !bugs[i].CreatedAt.Equal(bugs[j].CreatedAt) {
			return bugs[i].CreatedAt.After(bugs[j].CreatedAt)
		}
		return bugs[i].ID > bugs[j].ID
	})
	if len(bugs) > filters.Limit {
		bugs = bugs[:filters.Limit]
	}

	return &model.BugList{Bugs: bugs, Count: len(bugs), Filters: filters}, nil
}

// UpdateStatus moves a bug to a new status and records the change in its history.
func (s *BugService) UpdateStatus(ctx context.Context, ns store.Namespace, bugID, status, notes string) (*model.BugStatusUpdate, error) {
	id, err := parseBugID(bugID)
	if err != nil {
		return nil, err
	}
	st, err := parseBugStatus(status)
	if err != nil {
		return nil, err
	}
	if st == model.BugNew {
		return nil, fmt.Errorf("%w: status cannot be set back to %q", ErrInvalidInput, model.BugNew)
	}

	var notesPtr *string
	if n := strings.TrimSpace(notes); n != "" {
		notesPtr = &n
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bug, err := s.load(ctx, ns, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	bug.History = append(bug.History, model.BugStatusChange{
		From:      bug.Status,
		To:        st,
		Notes:     notesPtr,
		ChangedBy: ns.UserID,
		ChangedAt: now,
	})
	bug.Status = st
	bug.UpdatedAt = now
	if err := s.save(ctx, ns, bug); err != nil {
		return nil, err
	}

	return &model.BugStatusUpdate{ID: bug.ID, Status: st, Notes: notesPtr, UpdatedAt: now}, nil
}

// AddComment appends a comment to a bug.
func (s *BugService) AddComment(ctx context.Context, ns store.Namespace, bugID, comment string, isInternal bool) (*model.BugComment, error) {
	id, err := parseBugID(bugID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(comment) == "" {
		return nil, fmt.Errorf("%w: comment is required", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bug, err := s.load(ctx, ns, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	c := model.BugComment{
		ID:         s.newID(),
		BugID:      bug.ID,
		Comment:    comment,
		IsInternal: isInternal,
		AuthorID:   ns.UserID,
		CreatedAt:  now,
	}
	bug.Comments = append(bug.Comments, c)
	bug.UpdatedAt = now
	if err := s.save(ctx, ns, bug); err != nil {
		return nil, err
	}
	return &c, nil
}

// Details returns a bug with its comments and status history.
func (s *BugService) Details(ctx context.Context, ns store.Namespace, bugID string) (*model.Bug, error) {
	id, err := parseBugID(bugID)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, ns, id)
}
