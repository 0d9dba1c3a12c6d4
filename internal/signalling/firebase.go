package signalling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qrshare/internal/config"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

var (
	// ErrSessionNotFound is returned when no record exists for a session ID.
	ErrSessionNotFound = errors.New("session not found")
	// ErrAnswerTimeout is returned when the receiver never publishes an answer.
	ErrAnswerTimeout = errors.New("timeout waiting for answer")
)

// Session is the signalling record stored under sessions/<ID>.
// Vanilla ICE only: offer and answer carry all candidates.
type Session struct {
	ID        string `json:"sessionId"`
	Offer     string `json:"offer"`
	Answer    string `json:"answer"`
	CreatedAt int64  `json:"createdAt"`
}

// FirebaseClient stores signalling records in the Firebase Realtime Database.
type FirebaseClient struct {
	ref          *db.Ref
	pollInterval time.Duration
	pollAttempts int
}

// NewFirebaseClient connects to the configured Realtime Database.
func NewFirebaseClient(ctx context.Context, cfg *config.FirebaseConfig) (*FirebaseClient, error) {
	opt := option.WithCredentialsFile(cfg.CredentialsPath)

	firebaseConfig := &firebase.Config{
		ProjectID:   cfg.ProjectID,
		DatabaseURL: cfg.DatabaseURL,
	}

	app, err := firebase.NewApp(ctx, firebaseConfig, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting database client: %w", err)
	}

	return &FirebaseClient{
		ref:          client.NewRef("sessions"),
		pollInterval: cfg.PollInterval,
		pollAttempts: cfg.PollAttempts,
	}, nil
}

// CreateSession publishes the sender's offer under the descriptor's ID.
func (f *FirebaseClient) CreateSession(ctx context.Context, sessionID, offer string) error {
	sessionData := Session{
		ID:        sessionID,
		Offer:     offer,
		CreatedAt: time.Now().Unix(),
	}
	if err := f.ref.Child(sessionID).Set(ctx, sessionData); err != nil {
		return fmt.Errorf("error creating session %s: %w", sessionID, err)
	}

	logrus.WithFields(logrus.Fields{
		"function":   "CreateSession",
		"session_id": sessionID,
	}).Info("Session created")
	return nil
}

func (f *FirebaseClient) get(ctx context.Context, sessionID string) (Session, error) {
	var sessionData Session
	if err := f.ref.Child(sessionID).Get(ctx, &sessionData); err != nil {
		return Session{}, fmt.Errorf("error fetching session %s: %w", sessionID, err)
	}
	if sessionData.ID == "" {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return sessionData, nil
}

// GetOffer returns the sender's encoded offer.
func (f *FirebaseClient) GetOffer(ctx context.Context, sessionID string) (string, error) {
	sessionData, err := f.get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if sessionData.Offer == "" {
		return "", fmt.Errorf("session %s has no offer", sessionID)
	}
	return sessionData.Offer, nil
}

// UpdateAnswer stores the receiver's encoded answer.
func (f *FirebaseClient) UpdateAnswer(ctx context.Context, sessionID, answer string) error {
	if _, err := f.get(ctx, sessionID); err != nil {
		return err
	}

	updates := map[string]any{
		"answer": answer,
	}
	if err := f.ref.Child(sessionID).Update(ctx, updates); err != nil {
		return fmt.Errorf("error updating answer for session %s: %w", sessionID, err)
	}
	return nil
}

// WaitForAnswer polls until the receiver publishes an answer.
func (f *FirebaseClient) WaitForAnswer(ctx context.Context, sessionID string) (string, error) {
	if _, err := f.get(ctx, sessionID); err != nil {
		return "", err
	}

	return pollAnswer(ctx, f.pollInterval, f.pollAttempts, func(ctx context.Context) (string, error) {
		var sessionData struct {
			Answer string `json:"answer"`
		}
		if err := f.ref.Child(sessionID).Get(ctx, &sessionData); err != nil {
			return "", err
		}
		return sessionData.Answer, nil
	})
}

// DeleteSession removes the record. A missing record is not an error.
func (f *FirebaseClient) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := f.get(ctx, sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			logrus.WithFields(logrus.Fields{
				"function":   "DeleteSession",
				"session_id": sessionID,
			}).Debug("Session already gone")
			return nil
		}
		return err
	}

	if err := f.ref.Child(sessionID).Delete(ctx); err != nil {
		return fmt.Errorf("error deleting session %s: %w", sessionID, err)
	}
	return nil
}

// pollAnswer calls fetch up to attempts times, interval apart, until it
// yields a non-empty answer. Fetch errors are logged and retried.
func pollAnswer(ctx context.Context, interval time.Duration, attempts int, fetch func(context.Context) (string, error)) (string, error) {
	if attempts <= 0 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		answer, err := fetch(ctx)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "pollAnswer",
				"attempt":  i + 1,
				"error":    err.Error(),
			}).Warn("Failed to fetch answer")
		} else if answer != "" {
			return answer, nil
		}

		if i < attempts-1 {
			select {
			case <-time.After(interval):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	return "", ErrAnswerTimeout
}
