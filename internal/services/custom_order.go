package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/couture/internal/apperr"
	"github.com/example/couture/internal/metrics"
	"github.com/example/couture/internal/models"
	"github.com/example/couture/internal/storage"
	"github.com/example/couture/internal/validation"
)

const (
	// TimelineWindowDays is how far ahead a timeline may be set.
	TimelineWindowDays = 365
	statsWindow        = 30 * 24 * time.Hour
	noteMaxLength      = 2000
)

// CustomOrderInput is a submitted custom-order form. Values are raw strings
// as received; Measurements is keyed by field name (chest, waist, ...).
type CustomOrderInput struct {
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	StyleDescription string
	Occasion         string
	Budget           string
	Timeline         string
	Measurements     map[string]string
	Image            *Upload
	Picture          *Upload
	IdentityCode     string
}

// CustomOrderPatch holds the fields an update changes. Nil fields are kept;
// only the measurements present in the map are changed.
type CustomOrderPatch struct {
	FirstName        *string
	LastName         *string
	Email            *string
	Phone            *string
	StyleDescription *string
	Occasion         *string
	Budget           *string
	Timeline         *string
	Measurements     map[string]string
}

// CreateResult reports a created order and the cart it was added to.
type CreateResult struct {
	Order        *models.CustomOrder
	IdentityCode string
}

// CustomOrderConfig tunes CustomOrderService.
type CustomOrderConfig struct {
	MaxImageSize int64
}

// CustomOrderService runs the custom-order workflow: submission, staff
// administration and the status state machine.
type CustomOrderService struct {
	store    storage.Store
	images   ImageStore
	notifier StaffNotifier
	cfg      CustomOrderConfig
	now      Clock
	log      *zap.Logger
}

// NewCustomOrderService constructs a CustomOrderService.
func NewCustomOrderService(store storage.Store, images ImageStore, notifier StaffNotifier, cfg CustomOrderConfig, log *zap.Logger) *CustomOrderService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &CustomOrderService{store: store, images: images, notifier: notifier, cfg: cfg, now: time.Now, log: log}
}

// WithClock replaces the time source.
func (s *CustomOrderService) WithClock(now Clock) *CustomOrderService {
	s.now = clockOrNow(now)
	return s
}

// orderFields collects the parsed values of a custom-order form.
type orderFields struct {
	firstName, lastName, email, phone string
	style, occasion, budget           string
	timeline                          time.Time
	measurements                      map[string]*float64
}

// fieldRules adds the rules for each named text field to p. A nil pointer
// skips the field, which is how partial updates reuse the creation rules.
func (s *CustomOrderService) fieldRules(p *validation.Pipeline, f *orderFields, firstName, lastName, email, phone, style, occasion, budget, timeline *string) {
	if firstName != nil {
		p.Field("first_name",
			validation.Required(*firstName, "This field is required."),
			func() error { return validation.Length(*firstName, 2, 100, "First name") },
			func() error { f.firstName = validation.TitleName(*firstName); return nil },
		)
	}
	if lastName != nil {
		p.Field("last_name",
			validation.Required(*lastName, "This field is required."),
			func() error { return validation.Length(*lastName, 2, 100, "Last name") },
			func() error { f.lastName = validation.TitleName(*lastName); return nil },
		)
	}
	if email != nil {
		p.Field("email",
			validation.Required(*email, "This field is required."),
			func() error { return validation.Email(*email) },
			func() error { f.email = strings.ToLower(strings.TrimSpace(*email)); return nil },
		)
	}
	if phone != nil {
		p.Field("phone", func() error {
			normalized, err := validation.NormalizePhone(*phone)
			f.phone = normalized
			return err
		})
	}
	if style != nil {
		p.Field("style_description",
			validation.Required(*style, "This field is required."),
			func() error { return validation.Length(*style, 10, 1000, "Style description") },
			func() error { f.style = strings.TrimSpace(*style); return nil },
		)
	}
	if occasion != nil {
		p.Field("occasion",
			validation.Required(*occasion, "This field is required."),
			func() error {
				v, err := validation.OneOf(*occasion, models.Occasions)
				f.occasion = v
				return err
			},
		)
	}
	if budget != nil {
		p.Field("budget",
			validation.Required(*budget, "This field is required."),
			func() error {
				v, err := validation.OneOf(*budget, models.BudgetBands)
				f.budget = v
				return err
			},
		)
	}
	if timeline != nil {
		p.Field("timeline",
			validation.Required(*timeline, "This field is required."),
			func() error {
				d, err := validation.ParseDate(*timeline)
				f.timeline = d
				return err
			},
			func() error { return validation.DateWindow(f.timeline, s.now(), TimelineWindowDays) },
		)
	}
}

// measurementRules adds a rule per measurement. With all set every known
// measurement is checked, otherwise only those present in values.
func measurementRules(p *validation.Pipeline, f *orderFields, values map[string]string, all bool) {
	f.measurements = map[string]*float64{}
	for _, rule := range models.MeasurementRules {
		raw, present := values[rule.Field]
		if !all && !present {
			continue
		}
		field, r := rule.Field, rule.MeasurementRange
		p.Field(field, func() error {
			v, err := validation.Measurement(raw, r)
			f.measurements[field] = v
			return err
		})
	}
}

func applyMeasurements(m *models.Measurements, values map[string]*float64) {
	for field, v := range values {
		switch field {
		case "neck":
			m.Neck = v
		case "arms":
			m.Arms = v
		case "shoulders":
			m.Shoulders = v
		case "chest":
			m.Chest = *v
		case "waist":
			m.Waist = *v
		case "hips":
			m.Hips = v
		case "inseam":
			m.Inseam = v
		case "height":
			m.Height = *v
		}
	}
}

func (s *CustomOrderService) imageRule(upload *Upload) validation.Rule {
	return func() error {
		if upload == nil {
			return nil
		}
		_, err := CheckImage(upload.Data, s.cfg.MaxImageSize)
		return err
	}
}

// Create validates a submission, stores its images and then, in one
// transaction, creates the order and adds it to the cart for the identity
// code. A missing identity code is replaced by a fresh one.
func (s *CustomOrderService) Create(ctx context.Context, actor Actor, in CustomOrderInput) (*CreateResult, error) {
	var f orderFields
	p := validation.New()
	s.fieldRules(p, &f, &in.FirstName, &in.LastName, &in.Email, &in.Phone, &in.StyleDescription, &in.Occasion, &in.Budget, &in.Timeline)
	measurementRules(p, &f, in.Measurements, true)
	p.Field("image", s.imageRule(in.Image)).
		Field("picture", s.imageRule(in.Picture)).
		Cross("non_field_errors", func() error {
			if in.Image == nil && in.Picture == nil {
				return errors.New("At least one image is required: upload a style image or a picture.")
			}
			return nil
		})
	if err := p.Validate(); err != nil {
		return nil, err
	}

	order := &models.CustomOrder{
		FirstName:        f.firstName,
		LastName:         f.lastName,
		Email:            f.email,
		Phone:            f.phone,
		StyleDescription: f.style,
		Occasion:         f.occasion,
		Budget:           f.budget,
		Timeline:         f.timeline,
		Status:           models.StatusPending,
	}
	applyMeasurements(&order.Measurements, f.measurements)
	if actor.Authenticated() {
		owner := actor.UserID
		order.UserID = &owner
	}

	stored, err := s.storeImages(ctx, order, in.Image, in.Picture)
	if err != nil {
		return nil, err
	}

	code := strings.TrimSpace(in.IdentityCode)
	if code == "" {
		code = uuid.NewString()
	}
	err = s.store.Transaction(ctx, func(tx storage.Store) error {
		if err := tx.CreateCustomOrder(ctx, order); err != nil {
			return fmt.Errorf("create custom order: %w", err)
		}
		_, _, err := attach(ctx, tx, code, order.ID)
		return err
	})
	if err != nil {
		s.discardImages(stored)
		return nil, err
	}

	metrics.RecordOrderCreated(order.Occasion)
	s.log.Info("custom order created",
		zap.String("order_id", order.ID.String()),
		zap.String("identity_code", code),
		zap.String("actor", actor.String()),
	)
	s.notify(order)
	return &CreateResult{Order: order, IdentityCode: code}, nil
}

func (s *CustomOrderService) storeImages(ctx context.Context, order *models.CustomOrder, image, picture *Upload) ([]string, error) {
	var stored []string
	if image != nil {
		url, err := s.images.Save(ctx, "custom_orders/styles", *image)
		if err != nil {
			return nil, fmt.Errorf("store style image: %w", err)
		}
		order.StyleImageURL = url
		stored = append(stored, url)
	}
	if picture != nil {
		url, err := s.images.Save(ctx, "custom_orders/pictures", *picture)
		if err != nil {
			s.discardImages(stored)
			return nil, fmt.Errorf("store picture: %w", err)
		}
		order.PictureURL = url
		stored = append(stored, url)
	}
	return stored, nil
}

// discardImages removes stored images on a detached context; the request may already be cancelled.
func (s *CustomOrderService) discardImages(urls []string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := s.images.Remove(context.Background(), url); err != nil {
			s.log.Warn("failed to remove image", zap.String("url", url), zap.Error(err))
		}
	}
}

func (s *CustomOrderService) notify(order *models.CustomOrder) {
	snapshot := *order
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.notifier.NotifyNewCustomOrder(ctx, &snapshot); err != nil {
			s.log.Warn("staff notification failed", zap.String("order_id", snapshot.ID.String()), zap.Error(err))
		}
	}()
}

func (s *CustomOrderService) load(ctx context.Context, store storage.Store, id uuid.UUID) (*models.CustomOrder, error) {
	order, err := store.GetCustomOrder(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load custom order: %w", err)
	}
	return order, nil
}

func requireStaff(actor Actor) error {
	if !actor.IsStaff {
		return ErrStaffOnly
	}
	return nil
}

// Get returns one order to staff or to its owner.
func (s *CustomOrderService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.CustomOrder, error) {
	if !actor.Authenticated() {
		return nil, ErrAuthRequired
	}
	order, err := s.load(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff && !order.OwnedBy(actor.UserID) {
		return nil, ErrNotOrderOwner
	}
	return order, nil
}

// List returns one page of orders for staff, newest first.
func (s *CustomOrderService) List(ctx context.Context, actor Actor, filter models.CustomOrderFilter) ([]models.CustomOrder, int64, error) {
	if err := requireStaff(actor); err != nil {
		return nil, 0, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperr.FieldError("status", fmt.Sprintf("Select a valid choice. %q is not one of the available choices.", filter.Status))
	}
	orders, total, err := s.store.ListCustomOrders(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list custom orders: %w", err)
	}
	if orders == nil {
		orders = []models.CustomOrder{}
	}
	return orders, total, nil
}

// Update changes order fields. Owners may edit while the order is pending or
// in progress; staff may always edit. Status is changed only by Transition.
func (s *CustomOrderService) Update(ctx context.Context, actor Actor, id uuid.UUID, patch CustomOrderPatch) (*models.CustomOrder, error) {
	order, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff && order.Status.Terminal() {
		return nil, ErrOrderLocked
	}

	var f orderFields
	p := validation.New()
	s.fieldRules(p, &f, patch.FirstName, patch.LastName, patch.Email, patch.Phone, patch.StyleDescription, patch.Occasion, patch.Budget, patch.Timeline)
	measurementRules(p, &f, patch.Measurements, false)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if patch.FirstName != nil {
		order.FirstName = f.firstName
	}
	if patch.LastName != nil {
		order.LastName = f.lastName
	}
	if patch.Email != nil {
		order.Email = f.email
	}
	if patch.Phone != nil {
		order.Phone = f.phone
	}
	if patch.StyleDescription != nil {
		order.StyleDescription = f.style
	}
	if patch.Occasion != nil {
		order.Occasion = f.occasion
	}
	if patch.Budget != nil {
		order.Budget = f.budget
	}
	if patch.Timeline != nil {
		order.Timeline = f.timeline
	}
	applyMeasurements(&order.Measurements, f.measurements)

	if err := s.store.UpdateCustomOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("update custom order: %w", err)
	}
	s.log.Info("custom order updated", zap.String("order_id", order.ID.String()), zap.String("actor", actor.String()))
	return order, nil
}

// Delete removes an order with its notes, history and cart links. Staff only.
func (s *CustomOrderService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	order, err := s.load(ctx, s.store, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteCustomOrder(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("delete custom order: %w", err)
	}
	s.discardImages([]string{order.StyleImageURL, order.PictureURL})
	s.log.Info("custom order deleted", zap.String("order_id", id.String()), zap.String("actor", actor.String()))
	return nil
}

// ParseStatus maps a requested status onto a known one.
func ParseStatus(value string) (models.OrderStatus, error) {
	status := models.OrderStatus(strings.ToLower(strings.TrimSpace(value)))
	if !status.Valid() {
		return "", apperr.FieldError("status", fmt.Sprintf("%q is not a valid choice.", value))
	}
	return status, nil
}

// Transition moves an order to target when the state machine allows it. The
// status change and its audit entry are written in one transaction.
func (s *CustomOrderService) Transition(ctx context.Context, actor Actor, id uuid.UUID, target string) (*models.CustomOrder, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	to, err := ParseStatus(target)
	if err != nil {
		return nil, err
	}

	var order *models.CustomOrder
	var from models.OrderStatus
	err = s.store.Transaction(ctx, func(tx storage.Store) error {
		var err error
		order, err = s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		from = order.Status
		if !from.CanTransitionTo(to) {
			return ErrInvalidTransition.WithMessage("Cannot change status from %s to %s", from, to)
		}

		order.Status = to
		if err := tx.UpdateCustomOrder(ctx, order); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		entry := &models.OrderStatusLog{CustomOrderID: order.ID, FromStatus: from, ToStatus: to, ActorID: actor.UserID}
		if err := tx.CreateStatusLog(ctx, entry); err != nil {
			return fmt.Errorf("log status change: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(string(from), string(to))
	s.log.Info("custom order status changed",
		zap.String("order_id", order.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor", actor.String()),
	)
	return order, nil
}

// StatusHistory returns the recorded transitions of an order. Staff only.
func (s *CustomOrderService) StatusHistory(ctx context.Context, actor Actor, id uuid.UUID) ([]models.OrderStatusLog, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, s.store, id); err != nil {
		return nil, err
	}
	logs, err := s.store.ListStatusLogs(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list status logs: %w", err)
	}
	if logs == nil {
		logs = []models.OrderStatusLog{}
	}
	return logs, nil
}

// AddNote appends a staff note to an order.
func (s *CustomOrderService) AddNote(ctx context.Context, actor Actor, id uuid.UUID, text string) (*models.OrderNote, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	err := validation.New().
		Field("note",
			validation.Required(text, "This field may not be blank."),
			func() error { return validation.Length(text, 1, noteMaxLength, "Note") },
		).
		Validate()
	if err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, s.store, id); err != nil {
		return nil, err
	}

	note := &models.OrderNote{CustomOrderID: id, Note: strings.TrimSpace(text), AuthorID: actor.UserID}
	if err := s.store.CreateOrderNote(ctx, note); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("create note: %w", err)
	}
	s.log.Info("order note added", zap.String("order_id", id.String()), zap.String("actor", actor.String()))
	return note, nil
}

// ListNotes returns the notes of an order, newest first. Staff only.
func (s *CustomOrderService) ListNotes(ctx context.Context, actor Actor, id uuid.UUID) ([]models.OrderNote, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, s.store, id); err != nil {
		return nil, err
	}
	notes, err := s.store.ListOrderNotes(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	if notes == nil {
		notes = []models.OrderNote{}
	}
	return notes, nil
}

// Stats aggregates orders by status and occasion with a rolling 30-day count.
func (s *CustomOrderService) Stats(ctx context.Context, actor Actor) (*models.CustomOrderStats, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	since := s.now().Add(-statsWindow)
	stats, err := s.store.CustomOrderStats(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("custom order stats: %w", err)
	}
	stats.WindowStart = since
	return stats, nil
}
