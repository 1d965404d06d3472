package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/yinan077/PassGate/internal/app/model"
	"github.com/yinan077/PassGate/internal/app/repository"
	"github.com/yinan077/PassGate/internal/app/service"
	httpUtil "github.com/yinan077/PassGate/internal/http/util"
)

const testUUID = "68201321-9dd2-4fb3-92b1-24367f38a7d6"

type mockVisitorService struct {
	getFn      func(ctx context.Context, vuid string) (*model.Visitor, error)
	addVisitFn func(ctx context.Context, vuid string) (*model.Visitor, error)
}

func (m *mockVisitorService) CreateVisitor(ctx context.Context, input service.CreateVisitorInput) (*model.Visitor, error) {
	return nil, nil
}

func (m *mockVisitorService) GetVisitor(ctx context.Context, vuid string) (*model.Visitor, error) {
	if m.getFn != nil {
		return m.getFn(ctx, vuid)
	}
	return nil, repository.ErrVisitorNotFound
}

func (m *mockVisitorService) ListVisitors(ctx context.Context, limit, offset int) ([]model.Visitor, error) {
	return nil, nil
}

func (m *mockVisitorService) UpdateVisitor(ctx context.Context, vuid string, input service.UpdateVisitorInput) (*model.Visitor, error) {
	return nil, nil
}

func (m *mockVisitorService) Deactivate(ctx context.Context, vuid string) (*model.Visitor, error) {
	return nil, nil
}

func (m *mockVisitorService) Reactivate(ctx context.Context, vuid string) (*model.Visitor, error) {
	return nil, nil
}

func (m *mockVisitorService) AddVisit(ctx context.Context, vuid string) (*model.Visitor, error) {
	if m.addVisitFn != nil {
		return m.addVisitFn(ctx, vuid)
	}
	return m.GetVisitor(ctx, vuid)
}

func newGateApp(svc service.VisitorService, known *service.KnownPasses) *fiber.App {
	app := fiber.New()
	h := NewGateHandler(GateDeps{
		Visitors: svc,
		Known:    known,
		Signer:   httpUtil.NewGrantSigner([]byte("test-secret"), time.Minute),
	})
	h.Register(app)
	return app
}

func activeVisitor() *model.Visitor {
	expires := time.Now().Add(24 * time.Hour)
	return &model.Visitor{ID: 1, UUID: testUUID, IsActive: true, ExpiresAt: &expires}
}

func TestGateHandler_Enter_RedirectsTokenised(t *testing.T) {
	svc := &mockVisitorService{
		getFn: func(ctx context.Context, vuid string) (*model.Visitor, error) {
			return activeVisitor(), nil
		},
	}

	app := newGateApp(svc, nil)
	resp, err := app.Test(httptest.NewRequest("GET", "/pass/"+testUUID+"?next=google.com", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	if got, want := resp.Header.Get("Location"), "google.com?vuid="+testUUID; got != want {
		t.Fatalf("expected Location %q, got %q", want, got)
	}
	if resp.Header.Get(GrantHeader) == "" {
		t.Fatal("expected a grant token header on redirect")
	}
}

func TestGateHandler_Enter_ReturnsGrantJSON(t *testing.T) {
	svc := &mockVisitorService{
		getFn: func(ctx context.Context, vuid string) (*model.Visitor, error) {
			return activeVisitor(), nil
		},
	}

	app := newGateApp(svc, nil)
	resp, err := app.Test(httptest.NewRequest("GET", "/pass/"+testUUID, nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body EnterResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.UUID != testUUID {
		t.Fatalf("expected uuid %s, got %s", testUUID, body.UUID)
	}
	if body.Grant == "" {
		t.Fatal("expected a grant token in the response")
	}
}

func TestGateHandler_Enter_DeniesInvalidPass(t *testing.T) {
	svc := &mockVisitorService{
		getFn: func(ctx context.Context, vuid string) (*model.Visitor, error) {
			visitor := activeVisitor()
			visitor.IsActive = false
			return visitor, nil
		},
	}

	app := newGateApp(svc, nil)
	resp, err := app.Test(httptest.NewRequest("GET", "/pass/"+testUUID, nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Fatalf("expected an HTML denial page, got content type %q", ct)
	}
	page, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(page), "deactivated") {
		t.Fatal("expected the denial reason on the page")
	}
}

func TestGateHandler_Enter_UnknownPass(t *testing.T) {
	app := newGateApp(&mockVisitorService{}, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/pass/"+testUUID, nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGateHandler_Enter_BloomShortCircuit(t *testing.T) {
	lookedUp := false
	svc := &mockVisitorService{
		getFn: func(ctx context.Context, vuid string) (*model.Visitor, error) {
			lookedUp = true
			return nil, repository.ErrVisitorNotFound
		},
	}

	// Empty filter: nothing was ever added, so every vuid is a definite miss.
	known := service.NewKnownPasses(100, 0.01)
	app := newGateApp(svc, known)

	resp, err := app.Test(httptest.NewRequest("GET", "/pass/"+testUUID, nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if lookedUp {
		t.Fatal("a definite bloom miss must not reach the service")
	}
}

func TestGateHandler_VerifyGrant(t *testing.T) {
	signer := httpUtil.NewGrantSigner([]byte("test-secret"), time.Minute)
	token, err := signer.Issue(testUUID)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	svc := &mockVisitorService{
		getFn: func(ctx context.Context, vuid string) (*model.Visitor, error) {
			return activeVisitor(), nil
		},
	}
	app := newGateApp(svc, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/pass/"+testUUID+"/grant/"+token, nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for a fresh grant, got %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/pass/"+testUUID+"/grant/garbage", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for a garbage grant, got %d", resp.StatusCode)
	}
}
