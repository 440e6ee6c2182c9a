// Package handlers содержит HTTP-обработчики сервиса товаров.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/RoGogDBD/items/internal/models"
	"github.com/RoGogDBD/items/internal/repository"
	"github.com/RoGogDBD/items/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

// ItemEvents принимает события жизненного цикла товаров. Публикация не влияет на ответ.
type ItemEvents interface {
	Publish(ctx context.Context, event models.ItemEvent)
}

type noopEvents struct{}

func (noopEvents) Publish(context.Context, models.ItemEvent) {}

// Handler не хранит состояние товаров между запросами.
type Handler struct {
	store    repository.ItemStore
	events   ItemEvents
	validate *validation.Validator
}

func NewHandler(store repository.ItemStore, events ItemEvents) *Handler {
	if events == nil {
		events = noopEvents{}
	}
	return &Handler{store: store, events: events, validate: validation.New()}
}

// Routes регистрирует эндпоинты /item.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/item", h.ListItems)
	r.Post("/item", h.CreateItem)
	r.Get("/item/{id}", h.GetItem)
	r.Delete("/item/{id}", h.DeleteItem)
}

// HealthHandler проверяет доступность хранилища.
//
//	@Summary	Health check
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	Envelope
//	@Failure	503	{object}	Envelope
//	@Router		/healthz [get]
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		requestLog(r).WithError(err).Warn("health check failed")
		respondError(w, http.StatusServiceUnavailable, map[string]string{"database": "unavailable"}, "Storage is unavailable")
		return
	}
	respond(w, http.StatusOK, map[string]string{"database": "ok"}, "OK")
}

// ListItems возвращает все товары.
//
//	@Summary	List items
//	@Tags		items
//	@Produce	json
//	@Success	200	{object}	Envelope{data=[]models.Item}
//	@Failure	500	{object}	Envelope
//	@Router		/item [get]
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List(r.Context())
	if err != nil {
		h.storeFailure(w, r, "fetch items", err)
		return
	}
	if items == nil {
		items = []models.Item{}
	}
	respond(w, http.StatusOK, items, "Items fetched successfully")
}

// GetItem возвращает товар по идентификатору.
//
//	@Summary	Get item
//	@Tags		items
//	@Produce	json
//	@Param		id	path		string	true	"Item ID"
//	@Success	200	{object}	Envelope{data=models.Item}
//	@Failure	404	{object}	Envelope
//	@Failure	500	{object}	Envelope
//	@Router		/item/{id} [get]
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(r)
	if !ok {
		respondError(w, http.StatusNotFound, nil, "Item not found")
		return
	}

	item, err := h.store.Get(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		respondError(w, http.StatusNotFound, nil, "Item not found")
		return
	}
	if err != nil {
		h.storeFailure(w, r, "fetch item", err)
		return
	}
	respond(w, http.StatusOK, item, "Item fetched successfully")
}

// CreateItem проверяет тело запроса и сохраняет товар.
//
//	@Summary	Create item
//	@Tags		items
//	@Accept		json
//	@Produce	json
//	@Param		item	body		createItemRequest	true	"New item"
//	@Success	201		{object}	Envelope{data=models.Item}
//	@Failure	400		{object}	Envelope{data=[]validation.FieldError}
//	@Failure	413		{object}	Envelope
//	@Failure	500		{object}	Envelope
//	@Router		/item [post]
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	candidate, err := h.validate.DecodeItem(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			respondError(w, http.StatusBadRequest, verrs, "Validation failed: "+strings.Join(verrs.Messages(), "; "))
			return
		}
		if errors.Is(err, validation.ErrBodyTooLarge) {
			requestLog(r).WithError(err).Warn("item body rejected")
			respondError(w, http.StatusRequestEntityTooLarge, nil, "Request body too large")
			return
		}
		requestLog(r).WithError(err).Error("item validation crashed")
		respondError(w, http.StatusInternalServerError, nil, "Internal server error")
		return
	}

	item, err := h.store.Insert(r.Context(), candidate)
	if err != nil {
		h.storeFailure(w, r, "create item", err)
		return
	}

	h.events.Publish(r.Context(), models.NewCreatedEvent(item))
	respond(w, http.StatusCreated, item, "Item created successfully")
}

// DeleteItem удаляет товар. Отсутствующий идентификатор тоже считается успехом.
//
//	@Summary	Delete item
//	@Tags		items
//	@Produce	json
//	@Param		id	path		string	true	"Item ID"
//	@Success	200	{object}	Envelope
//	@Failure	500	{object}	Envelope
//	@Router		/item/{id} [delete]
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(r)
	if !ok {
		requestLog(r).Info("delete requested for malformed item id")
		respond(w, http.StatusOK, nil, "Item deleted successfully")
		return
	}

	deleted, err := h.store.Delete(r.Context(), id)
	if err != nil {
		h.storeFailure(w, r, "delete item", err)
		return
	}

	if deleted {
		h.events.Publish(r.Context(), models.NewDeletedEvent(id))
	} else {
		requestLog(r).WithField("item_id", id).Info("delete requested for missing item")
	}
	respond(w, http.StatusOK, nil, "Item deleted successfully")
}

// storeFailure пропускает сообщение PersistenceError клиенту, остальные ошибки скрывает.
func (h *Handler) storeFailure(w http.ResponseWriter, r *http.Request, action string, err error) {
	var perr *repository.PersistenceError
	if errors.As(err, &perr) {
		requestLog(r).WithError(err).Errorf("failed to %s", action)
		respondError(w, http.StatusInternalServerError, nil, "Failed to "+action+": "+perr.Error())
		return
	}
	requestLog(r).WithError(err).Errorf("unexpected error on %s", action)
	respondError(w, http.StatusInternalServerError, nil, "Internal server error")
}

func itemID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// createItemRequest описывает тело POST /item для документации.
type createItemRequest struct {
	Name        string  `json:"name" example:"Desk Lamp" minLength:"3" maxLength:"32"`
	Description string  `json:"description" example:"A small LED desk lamp" minLength:"10" maxLength:"100"`
	Price       float64 `json:"price" example:"19.99"`
}
