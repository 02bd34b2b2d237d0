package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shrixtacy/RIVETO/internal/domain"
	"github.com/shrixtacy/RIVETO/internal/middleware"
	"github.com/shrixtacy/RIVETO/internal/repository"
	"github.com/shrixtacy/RIVETO/internal/service"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

type stubUserRepo struct {
	users map[string]*domain.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func (s *stubUserRepo) Create(ctx context.Context, user *domain.User) error {
	if _, exists := s.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	s.users[user.Email] = user
	return nil
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, exists := s.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range s.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

type stubTokenRepo struct {
	tokens map[string]*domain.RefreshToken
}

func newStubTokenRepo() *stubTokenRepo {
	return &stubTokenRepo{tokens: make(map[string]*domain.RefreshToken)}
}

func (s *stubTokenRepo) Store(ctx context.Context, token *domain.RefreshToken) error {
	s.tokens[token.Token] = token
	return nil
}

func (s *stubTokenRepo) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	rt, exists := s.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if rt.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return rt, nil
}

func (s *stubTokenRepo) Revoke(ctx context.Context, token string) error {
	rt, exists := s.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	rt.Revoked = true
	return nil
}

func (s *stubTokenRepo) PurgeExpired(ctx context.Context, userID uuid.UUID) error {
	return nil
}

type stubCartRepo struct {
	lines map[uuid.UUID][]domain.CartLine
}

func newStubCartRepo() *stubCartRepo {
	return &stubCartRepo{lines: make(map[uuid.UUID][]domain.CartLine)}
}

func (s *stubCartRepo) Get(ctx context.Context, userID uuid.UUID) ([]domain.CartLine, error) {
	return s.lines[userID], nil
}

func (s *stubCartRepo) SetLine(ctx context.Context, userID, productID uuid.UUID, size domain.Size, quantity int) error {
	s.lines[userID] = append(s.lines[userID], domain.CartLine{ProductID: productID, Size: size, Quantity: quantity})
	return nil
}

func (s *stubCartRepo) Clear(ctx context.Context, userID uuid.UUID) error {
	delete(s.lines, userID)
	return nil
}

type stubOrderRepo struct {
	orders map[uuid.UUID]*domain.Order
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{orders: make(map[uuid.UUID]*domain.Order)}
}

func (s *stubOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	s.orders[order.ID] = order
	return nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (s *stubOrderRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	var orders []*domain.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

func (s *stubOrderRepo) ListAll(ctx context.Context, page, pageSize int) ([]*domain.Order, int, error) {
	return nil, 0, nil
}

func (s *stubOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus) error {
	order, ok := s.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if order.Status != from {
		return repository.ErrStatusConflict
	}
	order.Status = to
	return nil
}

type accountHandlerFixture struct {
	handler *UserHandler
	service service.UserService
	users   *stubUserRepo
	carts   *stubCartRepo
	orders  *stubOrderRepo
}

func newAccountHandlerFixture() *accountHandlerFixture {
	users := newStubUserRepo()
	carts := newStubCartRepo()
	orders := newStubOrderRepo()
	svc := service.NewUserService(users, newStubTokenRepo(), carts, orders, "test-secret", zap.NewNop())
	return &accountHandlerFixture{
		handler: NewUserHandler(svc, zap.NewNop()),
		service: svc,
		users:   users,
		carts:   carts,
		orders:  orders,
	}
}

func postJSON(t *testing.T, handle http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handle(rr, req)
	return rr
}

func TestProperty_InvalidRegistrationDataIsRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("registration with invalid data returns a structured error", prop.ForAll(
		func(invalidCase int) bool {
			f := newAccountHandlerFixture()

			var reqBody RegisterRequest
			switch invalidCase % 4 {
			case 0:
				reqBody = RegisterRequest{Email: "", Password: "ValidPass123", FirstName: "Jane", LastName: "Doe"}
			case 1:
				reqBody = RegisterRequest{Email: "not-an-email", Password: "ValidPass123", FirstName: "Jane", LastName: "Doe"}
			case 2:
				reqBody = RegisterRequest{Email: "test@example.com", Password: "short", FirstName: "Jane", LastName: "Doe"}
			case 3:
				reqBody = RegisterRequest{Email: "test@example.com", Password: "ValidPass123"}
			}

			rr := postJSON(t, f.handler.Register, "/api/users/register", reqBody)

			if rr.Code != http.StatusBadRequest {
				t.Logf("FAIL: expected 400, got %d", rr.Code)
				return false
			}

			var response map[string]interface{}
			if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
				t.Logf("FAIL: could not decode error response: %v", err)
				return false
			}
			if _, exists := response["error"]; !exists {
				t.Logf("FAIL: response missing 'error' field")
				return false
			}

			return true
		},
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_SuccessfulRegistrationReturnsProfileData(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("successful registration returns the account profile", prop.ForAll(
		func(email string, password string, firstName string, lastName string) bool {
			f := newAccountHandlerFixture()

			rr := postJSON(t, f.handler.Register, "/api/users/register", RegisterRequest{
				Email:     email,
				Password:  password,
				FirstName: firstName,
				LastName:  lastName,
			})
			if rr.Code != http.StatusCreated {
				return true
			}

			var resp RegisterResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Logf("FAIL: could not decode response: %v", err)
				return false
			}

			if !resp.Success {
				t.Logf("FAIL: expected success envelope")
				return false
			}
			if resp.User.Email != email || resp.User.FirstName != firstName || resp.User.LastName != lastName {
				t.Logf("FAIL: profile fields diverge from the request")
				return false
			}
			if resp.User.Role == "" {
				t.Logf("FAIL: profile missing role")
				return false
			}
			if _, err := uuid.Parse(resp.User.ID); err != nil {
				t.Logf("FAIL: profile id is not a valid uuid: %v", err)
				return false
			}

			return true
		},
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ValidLoginReturnsBothTokens(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("valid login returns a usable session", prop.ForAll(
		func(email string, password string, firstName string, lastName string) bool {
			f := newAccountHandlerFixture()
			ctx := context.Background()

			if _, err := f.service.Register(ctx, email, password, firstName, lastName); err != nil {
				return true
			}

			rr := postJSON(t, f.handler.Login, "/api/users/login", LoginRequest{Email: email, Password: password})
			if rr.Code != http.StatusOK {
				t.Logf("FAIL: expected 200, got %d", rr.Code)
				return false
			}

			var resp LoginResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Logf("FAIL: could not decode login response: %v", err)
				return false
			}

			if !resp.Success || resp.AccessToken == "" || resp.RefreshToken == "" {
				t.Logf("FAIL: incomplete session in response")
				return false
			}
			if resp.User.Email != email {
				t.Logf("FAIL: user email mismatch")
				return false
			}

			claims, err := f.service.ValidateToken(resp.AccessToken)
			if err != nil {
				t.Logf("FAIL: access token validation failed: %v", err)
				return false
			}
			if claims.UserID.String() != resp.User.ID {
				t.Logf("FAIL: token user id diverges from the profile")
				return false
			}

			if newToken, err := f.service.RefreshToken(ctx, resp.RefreshToken); err != nil || newToken == "" {
				t.Logf("FAIL: refresh token is not usable: %v", err)
				return false
			}

			return true
		},
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRegisterHTTPDuplicateEmail(t *testing.T) {
	f := newAccountHandlerFixture()

	req := RegisterRequest{
		Email:     "dup@example.com",
		Password:  "password123",
		FirstName: "Jane",
		LastName:  "Doe",
	}

	if rr := postJSON(t, f.handler.Register, "/api/users/register", req); rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr := postJSON(t, f.handler.Register, "/api/users/register", req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a duplicate email, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestProfileHTTPSummarizesAccount(t *testing.T) {
	f := newAccountHandlerFixture()
	ctx := context.Background()

	user, err := f.service.Register(ctx, "shopper@example.com", "password123", "Jane", "Doe")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	productID := uuid.New()
	f.carts.lines[user.ID] = []domain.CartLine{
		{ProductID: productID, Size: "M", Quantity: 1},
		{ProductID: productID, Size: "L", Quantity: 2},
	}
	order := &domain.Order{ID: uuid.New(), UserID: user.ID, Status: domain.StatusPlaced}
	f.orders.orders[order.ID] = order

	req := httptest.NewRequest(http.MethodGet, "/api/users/profile", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, user.ID.String()))
	rr := httptest.NewRecorder()
	f.handler.GetProfile(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp ProfileResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success || resp.User.Email != "shopper@example.com" {
		t.Errorf("unexpected profile: %s", rr.Body.String())
	}
	if resp.CartLines != 2 {
		t.Errorf("expected 2 cart lines, got %d", resp.CartLines)
	}
	if resp.Orders != 1 {
		t.Errorf("expected 1 order, got %d", resp.Orders)
	}
}

func TestProfileHTTPUnauthorized(t *testing.T) {
	f := newAccountHandlerFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/users/profile", nil)
	rr := httptest.NewRecorder()
	f.handler.GetProfile(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
