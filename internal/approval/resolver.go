package approval

import "log/slog"

// UserDirectory is the read-only view of the reporting hierarchy.
type UserDirectory interface {
	GetApprover(userID int64) (*Approver, error)
}

// Resolver walks the manager-of relation upward to produce the ordered list
// of approver candidates for a submitter.
type Resolver struct {
	users  UserDirectory
	logger *slog.Logger
}

func NewResolver(users UserDirectory, logger *slog.Logger) *Resolver {
	return &Resolver{users: users, logger: logger}
}

// ResolveChain emits one entry per level starting at the submitter's direct
// manager, stopping at levelsRequired entries, at the top of the hierarchy,
// or on a detected cycle. The result may be shorter than levelsRequired; the
// caller decides what an incomplete chain means.
func (r *Resolver) ResolveChain(submitterID int64, levelsRequired int) ([]ManagerChainEntry, error) {
	if levelsRequired < 1 {
		return nil, nil
	}

	submitter, err := r.users.GetApprover(submitterID)
	if err != nil {
		r.logger.Error("submitter lookup failed", "error", err, "user_id", submitterID)
		return nil, err
	}

	entries := make([]ManagerChainEntry, 0, levelsRequired)
	visited := map[int64]bool{submitterID: true}
	nextID := submitter.ManagerID

	for level := 1; level <= levelsRequired; level++ {
		if nextID == nil {
			break
		}
		if visited[*nextID] {
			// self-reference or mutual reference in the manager relation;
			// stop here and let the caller treat the chain as incomplete
			r.logger.Warn("cycle detected in manager hierarchy",
				"submitter_id", submitterID,
				"manager_id", *nextID,
				"level", level)
			break
		}

		manager, err := r.users.GetApprover(*nextID)
		if err != nil {
			r.logger.Error("manager lookup failed", "error", err, "manager_id", *nextID)
			return nil, err
		}

		entries = append(entries, ManagerChainEntry{
			Level:        level,
			ManagerID:    manager.ID,
			ManagerName:  manager.Name,
			ManagerEmail: manager.Email,
		})
		visited[manager.ID] = true
		nextID = manager.ManagerID
	}

	return entries, nil
}
