package ledger

import (
	"context"
	"strings"
)

// Session returns the active user. ok is false when nobody is signed in.
func (l *Ledger) Session(ctx context.Context) (sess Session, ok bool, err error) {
	sessions, err := load[Session](ctx, l.store, CollectionSession)
	if err != nil {
		return Session{}, false, err
	}
	if len(sessions) == 0 {
		return Session{}, false, nil
	}
	return sessions[0], true, nil
}

// SetSession replaces the active user record.
func (l *Ledger) SetSession(ctx context.Context, sess Session) (Session, error) {
	sess.ID = strings.TrimSpace(sess.ID)
	if err := sess.Validate(); err != nil {
		return Session{}, err
	}
	err := l.store.WithTx(ctx, func(s Store) error {
		return save(ctx, s, CollectionSession, []Session{sess})
	})
	if err != nil {
		return Session{}, err
	}
	l.logger.WithField("user", sess.ID).WithField("role", sess.Role).Info("session started")
	return sess, nil
}

// ClearSession signs the active user out.
func (l *Ledger) ClearSession(ctx context.Context) error {
	err := l.store.WithTx(ctx, func(s Store) error {
		return s.Put(ctx, CollectionSession, nil)
	})
	if err != nil {
		return err
	}
	l.logger.Info("session cleared")
	return nil
}
