package contact

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/darulhuda/madrasa/core"
)

const DefaultWindow = time.Hour

type (
	Message struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Email     string    `json:"email,omitempty"`
		Mobile    string    `json:"mobile,omitempty"`
		Subject   string    `json:"subject,omitempty"`
		Body      string    `json:"message"`
		ClientIP  string    `json:"-"`
		CreatedAt time.Time `json:"created_at"` // UTC
	}

	NewMessage struct {
		Name    string `json:"name" validate:"required,notblank,max=80"`
		Email   string `json:"email" validate:"required_without=Mobile,omitempty,email"`
		Mobile  string `json:"mobile" validate:"required_without=Email,omitempty,bdmobile"`
		Subject string `json:"subject" validate:"max=150"`
		Body    string `json:"message" validate:"required,notblank,max=2000"`
	}

	Repository interface {
		CreateMessage(ctx context.Context, m Message) (Message, error)
		// QueryMessages returns the messages newest first.
		QueryMessages(ctx context.Context) ([]Message, error)
	}

	// Throttle lets one event per key through per window.
	Throttle interface {
		// Allow reports whether an event for key is allowed now,
		// and if not, how long until the next one is.
		Allow(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error)
		// Release gives back the event allowed for key, so the next one is allowed right away.
		Release(ctx context.Context, key string) error
	}

	Service struct {
		repo     Repository
		throttle Throttle
		window   time.Duration
	}

	// ThrottledError is returned for messages sent before the window of the previous one has passed.
	ThrottledError struct {
		Remaining time.Duration
	}
)

func (e *ThrottledError) Error() string {
	mins := int((e.Remaining + time.Minute - 1) / time.Minute)
	return fmt.Sprintf("you have already sent a message, please wait %d minute(s)", mins)
}

func (nm NewMessage) Validate(validate *validator.Validate) error {
	return validate.Struct(nm)
}

func NewService(repo Repository, throttle Throttle, window time.Duration) *Service {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Service{repo: repo, throttle: throttle, window: window}
}

// Submit stores the message of client unless it already sent one during the last window.
func (svc *Service) Submit(ctx context.Context, client string, nm NewMessage) (Message, error) {
	key := "contact:" + client
	ok, remaining, err := svc.throttle.Allow(ctx, key, svc.window)
	if err != nil {
		return Message{}, errors.Wrap(err, "checking throttle")
	}
	if !ok {
		return Message{}, &ThrottledError{Remaining: remaining}
	}

	m := Message{
		Name:      core.CleanString(nm.Name),
		Email:     core.CleanString(nm.Email, true /* lower */),
		Mobile:    core.CleanString(nm.Mobile),
		Subject:   core.CleanString(nm.Subject),
		Body:      core.CleanString(nm.Body),
		ClientIP:  client,
		CreatedAt: core.NowFunc().UTC(),
	}
	m, err = svc.repo.CreateMessage(ctx, m)
	if err != nil {
		// only delivered messages count
		if rErr := svc.throttle.Release(ctx, key); rErr != nil {
			return Message{}, errors.Wrapf(err, "creating message (releasing throttle: %v)", rErr)
		}
		return Message{}, errors.Wrap(err, "creating message")
	}
	return m, nil
}

func (svc *Service) List(ctx context.Context) ([]Message, error) {
	msgs, err := svc.repo.QueryMessages(ctx)
	return msgs, errors.Wrap(err, "querying messages")
}
