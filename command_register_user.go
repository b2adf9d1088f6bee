package auth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	SerialID    string `json:"serial_id"`
	Nickname    string `json:"nickname"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	PhoneRegion string `json:"phone_region"`
	Password    string `json:"password"`
	UseHashid   bool
}

func (e RegisterUserMessage) Type() string { return "user.register" }

type RegisterUserHandler struct {
	repo RepositoryManager
}

func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	return &RegisterUserHandler{repo: repo}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		phone, err := normalizePhone(event.Phone, event.PhoneRegion)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid phone number provided")
		}

		user.PasswordHash = hash
		user.SerialID = strings.TrimSpace(event.SerialID)
		user.Email = event.Email
		user.Phone = phone
		user.Nickname = getNickname(event.Nickname, event.Email)
		user.Provider = ProviderBasic
		user.Role = RoleUser
		user.Registered = true
		if event.UseHashid {
			if id, err := hashid.NewUUID(user.SerialID); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	return nil
}

func getNickname(nickname, email string) string {
	if nickname != "" {
		return nickname
	}

	if strings.Contains(email, "@") {
		nickname = strings.Split(email, "@")[0]
	}

	return nickname
}

// normalizePhone renders the number in E.164 so the same phone never lands
// under two spellings. Empty input is allowed, registration can complete
// without a phone on file.
func normalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	if region == "" {
		region = "KR"
	}

	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", err
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", goerrors.New("phone number failed validation", goerrors.CategoryValidation)
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
