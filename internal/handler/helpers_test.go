package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/questline-learn/questline-api/internal/models"
	"github.com/questline-learn/questline-api/internal/repository"
	"github.com/questline-learn/questline-api/internal/service"
	"github.com/questline-learn/questline-api/internal/utils"
	"github.com/questline-learn/questline-api/internal/workflow"
)

const (
	actorIDHeader    = "X-Test-Actor-ID"
	actorRoleHeader  = "X-Test-Actor-Role"
	actorScopeHeader = "X-Test-Actor-Scope"
)

type testApp struct {
	app     *fiber.App
	mission models.Mission

	student  workflow.Actor
	teacher  workflow.Actor
	stranger workflow.Actor
	admin    workflow.Actor
}

// injectActor replaces ResolveActor in tests: the actor is described by
// request headers instead of a JWT and a database lookup.
func injectActor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(actorIDHeader)
		if id == "" {
			return c.Next()
		}

		actor := workflow.Actor{ID: id, Role: workflow.Role(c.Get(actorRoleHeader))}
		if scope := c.Get(actorScopeHeader); scope != "" {
			actor.ScopedStudentIDs = strings.Split(scope, ",")
		}

		c.Locals("resolved_actor", actor)
		return c.Next()
	}
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Mission{},
		&models.Submission{},
		&models.Artifact{},
		&models.SubmissionEvent{},
		&models.XPAward{},
	))

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())

	submissionRepo := repository.NewSubmissionRepository(db)
	missionRepo := repository.NewMissionRepository(db)
	xpRepo := repository.NewXPRepository(db)

	workflowService := service.NewWorkflowService(submissionRepo, missionRepo, service.NewLogOutcomeDispatcher(logger), validate, logger)
	missionService, err := service.NewMissionService(missionRepo, validate, logger)
	require.NoError(t, err)
	xpService := service.NewXPService(xpRepo, missionRepo, nil, nil, "", time.Minute, logger)

	app := fiber.New()
	api := app.Group("/api/v1", injectActor())
	NewSubmissionHandler(workflowService, logger).Register(api.Group("/submissions"))
	NewMissionHandler(missionService, logger).Register(api.Group("/missions"))
	NewXPHandler(xpService, logger).Register(api.Group("/students"))

	mission := models.Mission{ID: uuid.NewString(), Title: "Write a parser", XPReward: 100, Open: true}
	require.NoError(t, missionRepo.Create(t.Context(), &mission))

	student := workflow.Actor{ID: uuid.NewString(), Role: workflow.RoleStudent}
	return &testApp{
		app:      app,
		mission:  mission,
		student:  student,
		teacher:  workflow.Actor{ID: uuid.NewString(), Role: workflow.RoleTeacher, ScopedStudentIDs: []string{student.ID}},
		stranger: workflow.Actor{ID: uuid.NewString(), Role: workflow.RoleTeacher, ScopedStudentIDs: []string{uuid.NewString()}},
		admin:    workflow.Actor{ID: uuid.NewString(), Role: workflow.RoleAdmin},
	}
}

func (ta *testApp) request(t *testing.T, method, path string, actor *workflow.Actor, body interface{}) (*http.Response, utils.APIResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if actor != nil {
		req.Header.Set(actorIDHeader, actor.ID)
		req.Header.Set(actorRoleHeader, string(actor.Role))
		if len(actor.ScopedStudentIDs) > 0 {
			req.Header.Set(actorScopeHeader, strings.Join(actor.ScopedStudentIDs, ","))
		}
	}

	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)

	var envelope utils.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.NoError(t, resp.Body.Close())

	return resp, envelope
}

// decodeData re-marshals the envelope's data field into a typed value.
func decodeData(t *testing.T, envelope utils.APIResponse, out interface{}) {
	t.Helper()

	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}
