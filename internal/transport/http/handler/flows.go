package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/edumarket/storefront/internal/domain"
	applog "github.com/edumarket/storefront/internal/log"
	"github.com/edumarket/storefront/internal/repository"
	"github.com/edumarket/storefront/internal/session"
	"github.com/edumarket/storefront/internal/usecase"
	"github.com/gin-gonic/gin"
)

// FlowHandler serves the register, forgot-password and change-password
// flows. Each request loads the flow snapshot, runs one step under the
// flow's step lock and stores the result.
type FlowHandler struct {
	uc     *usecase.IdentityUsecase
	store  repository.FlowStore
	logger *slog.Logger
}

func NewFlowHandler(uc *usecase.IdentityUsecase, store repository.FlowStore, logger *slog.Logger) *FlowHandler {
	return &FlowHandler{uc: uc, store: store, logger: logger.With("component", "flow_handler")}
}

func flowKey(kind usecase.FlowKind, id string) string {
	return string(kind) + ":" + id
}

// start persists a flow whose first step succeeded and answers 201.
func (h *FlowHandler) start(c *gin.Context, f usecase.Flow, err error) {
	defer f.Close()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.save(c.Request.Context(), f); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, h.uc.View(f))
}

func (h *FlowHandler) save(ctx context.Context, f usecase.Flow) error {
	key := flowKey(f.FlowKind(), f.FlowID())
	if f.CurrentState().Terminal() {
		if err := h.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete flow: %w", err)
		}
		return nil
	}

	snapshot, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal flow: %w", err)
	}
	return h.store.Save(ctx, key, snapshot)
}

// ownedFlow is a flow that only the session which started it may see.
type ownedFlow interface {
	OwnedBy(owner string) bool
}

// load reads the flow stored under key. An owned flow requested by another
// session reads as missing.
func load[F usecase.Flow](c *gin.Context, store repository.FlowStore, key string, fresh func() F) (F, error) {
	f := fresh()
	snapshot, err := store.Load(c.Request.Context(), key)
	if err != nil {
		return f, err
	}
	if err := json.Unmarshal(snapshot, f); err != nil {
		return f, fmt.Errorf("unmarshal flow: %w", err)
	}
	if o, ok := any(f).(ownedFlow); ok && !o.OwnedBy(c.GetString(session.OwnerKey)) {
		return f, domain.ErrFlowNotFound
	}
	return f, nil
}

// view answers GET on a flow without taking its lock.
func view[F usecase.Flow](h *FlowHandler, kind usecase.FlowKind, fresh func() F) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, err := load(c, h.store, flowKey(kind, c.Param("id")), fresh)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, h.uc.View(f))
	}
}

// step runs fn on the stored flow. The flow is saved even when fn fails,
// since a failed step may still change it.
func step[F usecase.Flow](h *FlowHandler, kind usecase.FlowKind, fresh func() F, fn func(ctx context.Context, c *gin.Context, f F) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		ctx := applog.WithFlowID(c.Request.Context(), id)
		key := flowKey(kind, id)

		unlock, err := h.store.Lock(ctx, key)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		defer unlock()

		f, err := load(c, h.store, key, fresh)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		defer f.Close()

		stepErr := fn(ctx, c, f)
		if err := h.save(ctx, f); err != nil {
			respondError(c, h.logger, err)
			return
		}
		if stepErr != nil {
			respondError(c, h.logger, stepErr)
			return
		}
		c.JSON(http.StatusOK, h.uc.View(f))
	}
}

func bind(c *gin.Context, in any) error {
	if err := c.ShouldBindJSON(in); err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return nil
}
