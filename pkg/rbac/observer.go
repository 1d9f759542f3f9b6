package rbac

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Observer receives the steps of a resolution as they happen. Hooks run on the
// resolving goroutine and must not block.
type Observer interface {
	Started(userID string)
	UserFound(userID string, user User)
	Activated(userID string)
	RoleValidated(userID, role string)
	Resolved(uc *UserContext)
	Failed(userID string, err error)
}

// NopObserver ignores every step
type NopObserver struct{}

func (NopObserver) Started(string)               {}
func (NopObserver) UserFound(string, User)       {}
func (NopObserver) Activated(string)             {}
func (NopObserver) RoleValidated(string, string) {}
func (NopObserver) Resolved(*UserContext)        {}
func (NopObserver) Failed(string, error)         {}

// NarratingObserver writes a human-readable account of each resolution
type NarratingObserver struct {
	NopObserver
	w io.Writer
}

// NewNarratingObserver narrates to w
func NewNarratingObserver(w io.Writer) *NarratingObserver {
	return &NarratingObserver{w: w}
}

func (o *NarratingObserver) Started(userID string) {
	fmt.Fprintf(o.w, "Building context for user: %s\n", userID)
}

func (o *NarratingObserver) Resolved(uc *UserContext) {
	client, ok := uc.ClientID()
	if !ok {
		client = "none"
	}
	fmt.Fprintf(o.w, "User '%s' has role: %s\n", uc.UserID(), uc.Role())
	fmt.Fprintf(o.w, "Assigned client_id: %s\n", client)
	fmt.Fprintln(o.w, "Granted permissions:")
	for _, key := range uc.Granted() {
		fmt.Fprintf(o.w, "  + %s\n", key)
	}
}

func (o *NarratingObserver) Failed(userID string, err error) {
	var re *ResolveError
	switch {
	case errors.As(err, &re) && re.Kind == ErrNotFound:
		fmt.Fprintf(o.w, "User not found: %s\n", userID)
	case errors.As(err, &re) && re.Kind == ErrDeactivated:
		fmt.Fprintf(o.w, "User is deactivated: %s\n", userID)
	case errors.As(err, &re) && re.Kind == ErrInvalidRole:
		fmt.Fprintf(o.w, "Invalid role: %s\n", re.Role)
	default:
		fmt.Fprintf(o.w, "Resolution failed for %s: %v\n", userID, err)
	}
}

// LogObserver writes each step as a debug entry
type LogObserver struct {
	log logrus.FieldLogger
}

// NewLogObserver logs to l
func NewLogObserver(l logrus.FieldLogger) *LogObserver {
	return &LogObserver{log: l.WithField("component", "resolver")}
}

func (o *LogObserver) Started(userID string) {
	o.log.WithField("user", userID).Debug("Resolving user context")
}

func (o *LogObserver) UserFound(userID string, user User) {
	o.log.WithFields(logrus.Fields{"user": userID, "role": user.Role, "active": user.Active}).Debug("User found")
}

func (o *LogObserver) Activated(userID string) {
	o.log.WithField("user", userID).Debug("User is active")
}

func (o *LogObserver) RoleValidated(userID, role string) {
	o.log.WithFields(logrus.Fields{"user": userID, "role": role}).Debug("Role validated")
}

func (o *LogObserver) Resolved(uc *UserContext) {
	o.log.WithFields(logrus.Fields{
		"user":    uc.UserID(),
		"role":    uc.Role(),
		"granted": uc.Granted(),
	}).Debug("User context resolved")
}

func (o *LogObserver) Failed(userID string, err error) {
	o.log.WithError(err).WithFields(logrus.Fields{
		"user":    userID,
		"outcome": Outcome(err),
	}).Debug("User context resolution failed")
}
