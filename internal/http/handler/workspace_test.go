package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"boardstack.app/workspace-service/common/logger"
	"boardstack.app/workspace-service/internal/http/handler"
	"boardstack.app/workspace-service/internal/http/middleware"
	"boardstack.app/workspace-service/internal/model"
	"boardstack.app/workspace-service/internal/service"
	"boardstack.app/workspace-service/internal/store"
)

func testIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(middleware.WithIdentity(
			c.Request.Context(),
			middleware.Identity{Token: "tok", AuthID: "auth-1", UserID: "user-1"},
		))
		c.Next()
	}
}

func sampleWorkspace(workspaceID int64) *model.Workspace {
	now := time.Now().UTC()
	return &model.Workspace{
		ID:             workspaceID,
		Name:           "Roadmap",
		SubscriptionID: "sub-1",
		Owners:         []string{"user-1"},
		Members:        []string{"user-1"},
		MemberRoles:    map[string]string{"user-1": "owner"},
		Settings:       map[string]any{},
		Progress:       model.Progress{State: model.ProgressStateInitial, LastUpdated: now, History: []model.ProgressEntry{}},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

var _ = Describe("WorkspaceHandler", func() {
	var (
		router *gin.Engine
		svc    *mockWorkspaceService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockWorkspaceService{}
		h := handler.NewWorkspaceHandler(svc)

		group := router.Group("/workspaces", testIdentity())
		group.POST("", h.Create)
		group.GET("/my", h.ListMine)
		group.GET("/:id", h.GetByID)
		group.GET("/:id/progress", h.GetProgress)
		group.PUT("/:id", h.Update)
		group.PATCH("/:id/progress", h.UpdateProgress)
		group.DELETE("/:id", h.Delete)
		group.POST("/:id/restore", h.Restore)
		group.POST("/:id/users", h.AddUsers)
		group.DELETE("/:id/users", h.RemoveUsers)
	})

	do := func(method, path string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	errorName := func(rec *httptest.ResponseRecorder) string {
		var payload map[string]any
		Expect(json.Unmarshal(rec.Body.Bytes(), &payload)).To(Succeed())
		name, _ := payload["error"].(string)
		return name
	}

	Describe("Create", func() {
		It("returns 201 with the created workspace", func() {
			svc.createFn = func(_ context.Context, in service.CreateInput) (*model.Workspace, error) {
				Expect(in.Name).To(Equal("Roadmap"))
				Expect(in.SubscriptionID).To(Equal("sub-1"))
				Expect(in.ActorID).To(Equal("user-1"))
				return sampleWorkspace(42), nil
			}

			rec := do(http.MethodPost, "/workspaces", map[string]any{
				"name":           "Roadmap",
				"subscriptionId": "sub-1",
			})
			Expect(rec.Code).To(Equal(http.StatusCreated))

			var resp map[string]any
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["id"]).To(Equal("42"))
			Expect(resp["owner"]).To(Equal([]any{"user-1"}))
		})

		It("rejects a body without a name", func() {
			rec := do(http.MethodPost, "/workspaces", map[string]any{"subscriptionId": "sub-1"})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(errorName(rec)).To(Equal("ValidationError"))
		})

		It("maps duplicate names to 409", func() {
			svc.createFn = func(_ context.Context, _ service.CreateInput) (*model.Workspace, error) {
				return nil, service.ErrDuplicateName
			}

			rec := do(http.MethodPost, "/workspaces", map[string]any{"name": "Roadmap", "subscriptionId": "sub-1"})
			Expect(rec.Code).To(Equal(http.StatusConflict))
			Expect(errorName(rec)).To(Equal("DuplicateError"))
		})
	})

	Describe("GetByID", func() {
		It("returns the workspace when the caller has access", func() {
			svc.hasAccessFn = func(ctx context.Context, workspaceID int64, userID string) (bool, error) {
				Expect(workspaceID).To(Equal(int64(42)))
				Expect(userID).To(Equal("user-1"))
				fields := logger.GetLogFields(ctx)
				Expect(fields.WorkspaceID).NotTo(BeNil())
				Expect(*fields.WorkspaceID).To(Equal(int64(42)))
				return true, nil
			}
			svc.findByIDFn = func(_ context.Context, workspaceID int64) (*model.Workspace, error) {
				return sampleWorkspace(workspaceID), nil
			}

			rec := do(http.MethodGet, "/workspaces/42", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		It("hides workspaces the caller cannot access behind a 404", func() {
			svc.hasAccessFn = func(_ context.Context, _ int64, _ string) (bool, error) {
				return false, nil
			}

			rec := do(http.MethodGet, "/workspaces/42", nil)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
			Expect(errorName(rec)).To(Equal("NotFoundError"))
		})

		It("rejects a non-numeric id", func() {
			rec := do(http.MethodGet, "/workspaces/abc", nil)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("ListMine", func() {
		It("lists the caller's workspaces", func() {
			svc.findAllFn = func(_ context.Context, f store.ListFilter) (*service.WorkspacePage, error) {
				Expect(f.UserID).To(Equal("user-1"))
				Expect(f.OwnerOnly).To(BeTrue())
				return &service.WorkspacePage{
					Workspaces: []model.Workspace{*sampleWorkspace(42)},
					Total:      1, Page: 1, Limit: 10,
				}, nil
			}

			rec := do(http.MethodGet, "/workspaces/my?ownerOnly=true", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var resp map[string]any
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["total"]).To(BeEquivalentTo(1))
		})
	})

	Describe("UpdateProgress", func() {
		It("maps an invalid transition to 400", func() {
			svc.isOwnerFn = func(_ context.Context, _ int64, _ string) (bool, error) { return true, nil }
			svc.updateProgressFn = func(_ context.Context, _ int64, _ model.ProgressState, _, _ string) (*model.Workspace, error) {
				return nil, service.ErrInvalidTransition
			}

			rec := do(http.MethodPatch, "/workspaces/42/progress", map[string]any{"state": "COMPLETED"})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(errorName(rec)).To(Equal("ValidationError"))
		})

		It("rejects non-owners with 403", func() {
			rec := do(http.MethodPatch, "/workspaces/42/progress", map[string]any{"state": "WAITING_TASKS"})
			Expect(rec.Code).To(Equal(http.StatusForbidden))
			Expect(errorName(rec)).To(Equal("AuthorizationError"))
		})

		It("commits a valid transition", func() {
			svc.isOwnerFn = func(_ context.Context, _ int64, _ string) (bool, error) { return true, nil }
			svc.updateProgressFn = func(_ context.Context, workspaceID int64, target model.ProgressState, comment, actorID string) (*model.Workspace, error) {
				Expect(target).To(Equal(model.ProgressStateWaitingTasks))
				Expect(comment).To(Equal("kickoff"))
				ws := sampleWorkspace(workspaceID)
				ws.Progress.State = target
				return ws, nil
			}

			rec := do(http.MethodPatch, "/workspaces/42/progress", map[string]any{"state": "WAITING_TASKS", "comment": "kickoff"})
			Expect(rec.Code).To(Equal(http.StatusOK))
		})
	})

	Describe("Delete", func() {
		It("soft deletes for an owner", func() {
			svc.isOwnerFn = func(_ context.Context, _ int64, _ string) (bool, error) { return true, nil }
			svc.softDeleteFn = func(_ context.Context, workspaceID int64, actorID string) (*model.Workspace, error) {
				ws := sampleWorkspace(workspaceID)
				ws.IsDeleted = true
				return ws, nil
			}

			rec := do(http.MethodDelete, "/workspaces/42", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		It("rejects a live workspace's non-owner with 403", func() {
			svc.findByIDFn = func(_ context.Context, workspaceID int64) (*model.Workspace, error) {
				return sampleWorkspace(workspaceID), nil
			}

			rec := do(http.MethodDelete, "/workspaces/42", nil)
			Expect(rec.Code).To(Equal(http.StatusForbidden))
		})

		It("lets a repeat delete fall through to the idempotent service answer", func() {
			// Not owner per IsOwner (record is deleted), FindByID misses too.
			svc.softDeleteFn = func(_ context.Context, workspaceID int64, _ string) (*model.Workspace, error) {
				ws := sampleWorkspace(workspaceID)
				ws.IsDeleted = true
				return ws, nil
			}

			rec := do(http.MethodDelete, "/workspaces/42", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
		})
	})

	Describe("Restore", func() {
		It("returns the restored workspace", func() {
			svc.restoreFn = func(_ context.Context, workspaceID int64, _ string) (*model.Workspace, error) {
				return sampleWorkspace(workspaceID), nil
			}

			rec := do(http.MethodPost, "/workspaces/42/restore", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		It("maps a missing workspace to 404", func() {
			rec := do(http.MethodPost, "/workspaces/42/restore", nil)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("AddUsers", func() {
		It("reports partial success", func() {
			svc.addUsersFn = func(_ context.Context, workspaceID int64, userIDs []string, actorID, token string) (*service.AddUsersResult, error) {
				Expect(userIDs).To(Equal([]string{"u-1", "u-2"}))
				Expect(token).To(Equal("tok"))
				return &service.AddUsersResult{
					Workspace:    sampleWorkspace(workspaceID),
					AddedUsers:   []string{"u-1"},
					InvalidUsers: []string{"u-2"},
				}, nil
			}

			rec := do(http.MethodPost, "/workspaces/42/users", map[string]any{"userIds": []string{"u-1", "u-2"}})
			Expect(rec.Code).To(Equal(http.StatusOK))

			var resp map[string]any
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["addedUsers"]).To(Equal([]any{"u-1"}))
			Expect(resp["invalidUsers"]).To(Equal([]any{"u-2"}))
		})

		It("maps a fully rejected batch to 400", func() {
			svc.addUsersFn = func(_ context.Context, _ int64, _ []string, _, _ string) (*service.AddUsersResult, error) {
				return nil, service.ErrNoValidUsers
			}

			rec := do(http.MethodPost, "/workspaces/42/users", map[string]any{"userIds": []string{"u-1"}})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(errorName(rec)).To(Equal("ValidationError"))
		})

		It("maps a seat-limit rejection to 403", func() {
			svc.addUsersFn = func(_ context.Context, _ int64, _ []string, _, _ string) (*service.AddUsersResult, error) {
				return nil, service.ErrUserLimitExceeded
			}

			rec := do(http.MethodPost, "/workspaces/42/users", map[string]any{"userIds": []string{"u-1"}})
			Expect(rec.Code).To(Equal(http.StatusForbidden))
		})

		It("rejects an empty id list", func() {
			rec := do(http.MethodPost, "/workspaces/42/users", map[string]any{"userIds": []string{}})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("RemoveUsers", func() {
		It("reports removed and unknown ids", func() {
			svc.removeUsersFn = func(_ context.Context, workspaceID int64, userIDs []string, _ string) (*service.RemoveUsersResult, error) {
				return &service.RemoveUsersResult{
					Workspace:    sampleWorkspace(workspaceID),
					RemovedUsers: []string{"u-1"},
					NotPresent:   []string{"ghost"},
				}, nil
			}

			rec := do(http.MethodDelete, "/workspaces/42/users", map[string]any{"userIds": []string{"u-1", "ghost"}})
			Expect(rec.Code).To(Equal(http.StatusOK))

			var resp map[string]any
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["removedUsers"]).To(Equal([]any{"u-1"}))
			Expect(resp["notPresentUsers"]).To(Equal([]any{"ghost"}))
		})
	})
})
