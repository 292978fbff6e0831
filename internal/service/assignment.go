package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"subscription-billing-backoffice/internal/apperr"
	"subscription-billing-backoffice/internal/dto"
	"subscription-billing-backoffice/internal/model"
	"subscription-billing-backoffice/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// invoiceDueDays is the payment window stamped on every derived invoice.
const invoiceDueDays = 30

// AssignmentService is the subscription assignment engine: every write
// operation runs inside a single database transaction, and create/patch
// additionally derive an invoice from the refreshed subscription snapshot.
//
// Two deliberate quirks are kept from the product's current behavior:
// a full replace (PUT) has no invoice side effect, while a partial update
// (PATCH) derives a fresh invoice on every call, changed or not; and the
// invoice total is the plan price, not a sum over line items.
type AssignmentService interface {
	CreateAssignment(ctx context.Context, req *dto.CreateAssignmentRequest) (*dto.AssignmentResult, error)
	GetAssignment(ctx context.Context, subscriptionID uint) (*dto.SubscriptionView, error)
	GetAssignmentByCustomerAndPlan(ctx context.Context, customerID, planID string) (*dto.SubscriptionView, error)
	ListAssignmentsByCustomer(ctx context.Context, customerID string) ([]*dto.SubscriptionView, error)
	ListAssignmentsByPlan(ctx context.Context, planID string) ([]*dto.SubscriptionView, error)
	ListAssignments(ctx context.Context, opts repository.ListOptions) (*dto.ListAssignmentsResponse, error)
	ReplaceAssignment(ctx context.Context, subscriptionID uint, req *dto.ReplaceAssignmentRequest) (*dto.SubscriptionView, error)
	PatchAssignment(ctx context.Context, subscriptionID uint, req *dto.PatchAssignmentRequest) (*dto.AssignmentResult, error)
	DeleteAssignment(ctx context.Context, subscriptionID uint) (*dto.SubscriptionView, error)
}

type assignmentServiceImpl struct {
	db               *gorm.DB
	log              *logrus.Logger
	subscriptionRepo repository.SubscriptionRepository
	customerRepo     repository.CustomerRepository
	planRepo         repository.PlanRepository
	itemRepo         repository.ItemRepository
	invoiceRepo      repository.InvoiceRepository
	numbers          InvoiceNumberGenerator
}

func NewAssignmentService(
	db *gorm.DB,
	log *logrus.Logger,
	subscriptionRepo repository.SubscriptionRepository,
	customerRepo repository.CustomerRepository,
	planRepo repository.PlanRepository,
	itemRepo repository.ItemRepository,
	invoiceRepo repository.InvoiceRepository,
	numbers InvoiceNumberGenerator,
) AssignmentService {
	return &assignmentServiceImpl{
		db:               db,
		log:              log,
		subscriptionRepo: subscriptionRepo,
		customerRepo:     customerRepo,
		planRepo:         planRepo,
		itemRepo:         itemRepo,
		invoiceRepo:      invoiceRepo,
		numbers:          numbers,
	}
}

func (s *assignmentServiceImpl) CreateAssignment(ctx context.Context, req *dto.CreateAssignmentRequest) (*dto.AssignmentResult, error) {
	if req.CustomerID == "" {
		return nil, apperr.Validation("customer_id", "required")
	}
	if req.PlanID == "" {
		return nil, apperr.Validation("plan_id", "required")
	}
	status := model.SubscriptionStatus(req.Status)
	if !status.Valid() {
		return nil, apperr.Validation("status", fmt.Sprintf("unknown status %q", req.Status))
	}
	startDate, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return nil, err
	}
	endDate, err := parseDate("end_date", req.EndDate)
	if err != nil {
		return nil, err
	}

	sub := &model.Subscription{
		CustomerID: req.CustomerID,
		PlanID:     req.PlanID,
		Status:     status,
		StartDate:  startDate,
		EndDate:    endDate,
		AutoRenew:  req.AutoRenew,
	}

	var invoice *model.Invoice
	var snapshot *repository.SubscriptionSnapshot

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Advisory pre-check; the composite unique index on
		// (customer_id, plan_id, status) remains the mechanism of record.
		if _, err := s.subscriptionRepo.FindByCustomerAndPlan(ctx, req.CustomerID, req.PlanID); err == nil {
			return apperr.DuplicateAssignment(req.CustomerID, req.PlanID)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check existing assignment: %w", err)
		}

		if err := s.subscriptionRepo.Create(ctx, tx, sub); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.DuplicateAssignment(req.CustomerID, req.PlanID)
			}
			return classifyWriteError(fmt.Errorf("insert subscription: %w", err))
		}

		itemRows, err := buildItemRows(sub.ID, req.Items)
		if err != nil {
			return err
		}
		if len(itemRows) > 0 {
			if err := s.checkItemsExist(ctx, req.Items); err != nil {
				return err
			}
			if err := s.subscriptionRepo.CreateItems(ctx, tx, itemRows); err != nil {
				return classifyWriteError(fmt.Errorf("insert subscription items: %w", err))
			}
		}

		snapshot, err = s.subscriptionRepo.GetSnapshot(ctx, tx, sub.ID)
		if err != nil {
			return fmt.Errorf("read subscription snapshot: %w", err)
		}

		invoice, err = s.deriveInvoice(ctx, tx, snapshot)
		if err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		s.log.WithError(err).
			WithField("customer_id", req.CustomerID).
			WithField("plan_id", req.PlanID).
			Error("create assignment failed")
		return nil, err
	}

	return &dto.AssignmentResult{
		Success:      true,
		Subscription: viewFromSnapshot(snapshot),
		Invoice:      invoiceView(invoice),
	}, nil
}

func (s *assignmentServiceImpl) GetAssignment(ctx context.Context, subscriptionID uint) (*dto.SubscriptionView, error) {
	snapshot, err := s.subscriptionRepo.GetSnapshot(ctx, nil, subscriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("subscription", subscriptionID)
		}
		return nil, err
	}

	return viewFromSnapshot(snapshot), nil
}

func (s *assignmentServiceImpl) GetAssignmentByCustomerAndPlan(ctx context.Context, customerID, planID string) (*dto.SubscriptionView, error) {
	if customerID == "" {
		return nil, apperr.Validation("customer_id", "required")
	}
	if planID == "" {
		return nil, apperr.Validation("plan_id", "required")
	}

	sub, err := s.subscriptionRepo.FindByCustomerAndPlan(ctx, customerID, planID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("subscription", customerID+"/"+planID)
		}
		return nil, err
	}

	return s.GetAssignment(ctx, sub.ID)
}

func (s *assignmentServiceImpl) ListAssignmentsByCustomer(ctx context.Context, customerID string) ([]*dto.SubscriptionView, error) {
	if customerID == "" {
		return nil, apperr.Validation("customer_id", "required")
	}

	subs, err := s.subscriptionRepo.FindByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	return s.buildViews(ctx, subs)
}

func (s *assignmentServiceImpl) ListAssignmentsByPlan(ctx context.Context, planID string) ([]*dto.SubscriptionView, error) {
	if planID == "" {
		return nil, apperr.Validation("plan_id", "required")
	}

	subs, err := s.subscriptionRepo.FindByPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	return s.buildViews(ctx, subs)
}

func (s *assignmentServiceImpl) ListAssignments(ctx context.Context, opts repository.ListOptions) (*dto.ListAssignmentsResponse, error) {
	subs, total, err := s.subscriptionRepo.List(ctx, opts)
	if err != nil {
		return nil, err
	}

	views, err := s.buildViews(ctx, subs)
	if err != nil {
		return nil, err
	}

	return &dto.ListAssignmentsResponse{
		Total:         total,
		Subscriptions: views,
	}, nil
}

// ReplaceAssignment is the fields-only full replace: every scalar is
// rewritten, the item list is deleted and reinserted, and no invoice is
// derived.
func (s *assignmentServiceImpl) ReplaceAssignment(ctx context.Context, subscriptionID uint, req *dto.ReplaceAssignmentRequest) (*dto.SubscriptionView, error) {
	if req.CustomerID == "" {
		return nil, apperr.Validation("customer_id", "required")
	}
	if req.PlanID == "" {
		return nil, apperr.Validation("plan_id", "required")
	}
	status := model.SubscriptionStatus(req.Status)
	if !status.Valid() {
		return nil, apperr.Validation("status", fmt.Sprintf("unknown status %q", req.Status))
	}
	startDate, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return nil, err
	}
	endDate, err := parseDate("end_date", req.EndDate)
	if err != nil {
		return nil, err
	}

	var snapshot *repository.SubscriptionSnapshot

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.subscriptionRepo.FindByID(ctx, tx, subscriptionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("subscription", subscriptionID)
			}
			return err
		}

		sub.CustomerID = req.CustomerID
		sub.PlanID = req.PlanID
		sub.Status = status
		sub.StartDate = startDate
		sub.EndDate = endDate
		sub.AutoRenew = req.AutoRenew

		if err := s.subscriptionRepo.Update(ctx, tx, sub); err != nil {
			return classifyWriteError(fmt.Errorf("update subscription: %w", err))
		}

		if err := s.subscriptionRepo.DeleteItems(ctx, tx, subscriptionID); err != nil {
			return fmt.Errorf("delete subscription items: %w", err)
		}

		itemRows, err := buildItemRows(subscriptionID, req.Items)
		if err != nil {
			return err
		}
		if len(itemRows) > 0 {
			if err := s.checkItemsExist(ctx, req.Items); err != nil {
				return err
			}
			if err := s.subscriptionRepo.CreateItems(ctx, tx, itemRows); err != nil {
				return classifyWriteError(fmt.Errorf("insert subscription items: %w", err))
			}
		}

		snapshot, err = s.subscriptionRepo.GetSnapshot(ctx, tx, subscriptionID)
		if err != nil {
			return fmt.Errorf("read subscription snapshot: %w", err)
		}

		return nil
	})
	if err != nil {
		s.log.WithError(err).
			WithField("subscription_id", subscriptionID).
			Error("replace assignment failed")
		return nil, err
	}

	return viewFromSnapshot(snapshot), nil
}

func (s *assignmentServiceImpl) PatchAssignment(ctx context.Context, subscriptionID uint, req *dto.PatchAssignmentRequest) (*dto.AssignmentResult, error) {
	var invoice *model.Invoice
	var snapshot *repository.SubscriptionSnapshot

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stored, err := s.subscriptionRepo.FindByID(ctx, tx, subscriptionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("subscription", subscriptionID)
			}
			return err
		}

		prevCustomerID := stored.CustomerID
		prevPlanID := stored.PlanID

		prevItems, err := s.subscriptionRepo.GetItems(ctx, tx, subscriptionID)
		if err != nil {
			return fmt.Errorf("read stored items: %w", err)
		}

		if err := mergePatch(stored, req); err != nil {
			return err
		}

		if err := s.subscriptionRepo.Update(ctx, tx, stored); err != nil {
			return classifyWriteError(fmt.Errorf("update subscription: %w", err))
		}

		itemsSupplied := req.Items != nil && len(*req.Items) > 0
		if itemsSupplied {
			if err := s.subscriptionRepo.DeleteItems(ctx, tx, subscriptionID); err != nil {
				return fmt.Errorf("delete subscription items: %w", err)
			}
			itemRows, err := buildItemRows(subscriptionID, *req.Items)
			if err != nil {
				return err
			}
			if err := s.checkItemsExist(ctx, *req.Items); err != nil {
				return err
			}
			if err := s.subscriptionRepo.CreateItems(ctx, tx, itemRows); err != nil {
				return classifyWriteError(fmt.Errorf("insert subscription items: %w", err))
			}
		}

		snapshot, err = s.subscriptionRepo.GetSnapshot(ctx, tx, subscriptionID)
		if err != nil {
			return fmt.Errorf("read subscription snapshot: %w", err)
		}

		isChanged := false
		if req.CustomerID != nil && *req.CustomerID != prevCustomerID {
			isChanged = true
		}
		if req.PlanID != nil && *req.PlanID != prevPlanID {
			isChanged = true
		}
		if itemsSupplied && !itemSetsEqual(normalizeDetails(prevItems), normalizeSupplied(*req.Items)) {
			isChanged = true
		}

		if isChanged {
			if _, err := s.invoiceRepo.CancelGenerated(ctx, tx, subscriptionID); err != nil {
				return fmt.Errorf("cancel superseded invoice: %w", err)
			}
		}

		// A fresh invoice is derived on every patch, not only on detected
		// change; see the service doc comment.
		invoice, err = s.deriveInvoice(ctx, tx, snapshot)
		if err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		s.log.WithError(err).
			WithField("subscription_id", subscriptionID).
			Error("patch assignment failed")
		return nil, err
	}

	return &dto.AssignmentResult{
		Success:      true,
		Subscription: viewFromSnapshot(snapshot),
		Invoice:      invoiceView(invoice),
	}, nil
}

// DeleteAssignment hard-deletes the subscription. The ON DELETE CASCADE
// constraints remove its line items and invoices; no separate invoice
// cleanup runs here, unlike the explicit invoice batch delete.
func (s *assignmentServiceImpl) DeleteAssignment(ctx context.Context, subscriptionID uint) (*dto.SubscriptionView, error) {
	var view *dto.SubscriptionView

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		snapshot, err := s.subscriptionRepo.GetSnapshot(ctx, tx, subscriptionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("subscription", subscriptionID)
			}
			return err
		}
		view = viewFromSnapshot(snapshot)

		if _, err := s.subscriptionRepo.Delete(ctx, tx, subscriptionID); err != nil {
			return fmt.Errorf("delete subscription: %w", err)
		}

		return nil
	})
	if err != nil {
		s.log.WithError(err).
			WithField("subscription_id", subscriptionID).
			Error("delete assignment failed")
		return nil, err
	}

	return view, nil
}

// deriveInvoice turns the denormalized snapshot into a persisted invoice.
// The total is the plan price at derivation time; the per-item prices are
// still captured in the JSON snapshot.
func (s *assignmentServiceImpl) deriveInvoice(ctx context.Context, tx *gorm.DB, snapshot *repository.SubscriptionSnapshot) (*model.Invoice, error) {
	if snapshot == nil {
		return nil, apperr.NotFound("subscription snapshot", nil)
	}

	number, err := s.numbers.Next(ctx, tx)
	if err != nil {
		return nil, err
	}

	items := make([]model.InvoiceItem, 0, len(snapshot.Items))
	for _, detail := range snapshot.Items {
		items = append(items, model.InvoiceItem{
			ItemID:       detail.ItemID,
			ItemName:     detail.ItemName,
			Quantity:     detail.Quantity,
			PricePerUnit: detail.UnitPrice,
		})
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal invoice items: %w", err)
	}

	now := time.Now()
	invoice := &model.Invoice{
		CustomerID:     snapshot.CustomerID,
		CustomerName:   snapshot.CustomerName,
		CustomerEmail:  snapshot.CustomerEmail,
		SubscriptionID: snapshot.SubscriptionID,
		PlanName:       snapshot.PlanName,
		PlanPrice:      snapshot.PlanPrice,
		InvoiceNumber:  number,
		TotalAmount:    snapshot.PlanPrice,
		Items:          datatypes.JSON(itemsJSON),
		Status:         model.InvoiceGenerated,
		IssuedDate:     now,
		DueDate:        now.AddDate(0, 0, invoiceDueDays),
	}

	if err := s.invoiceRepo.Create(ctx, tx, invoice); err != nil {
		return nil, classifyWriteError(fmt.Errorf("insert invoice: %w", err))
	}

	return invoice, nil
}

func (s *assignmentServiceImpl) buildViews(ctx context.Context, subs []*model.Subscription) ([]*dto.SubscriptionView, error) {
	views := make([]*dto.SubscriptionView, 0, len(subs))
	if len(subs) == 0 {
		return views, nil
	}

	subIDs := make([]uint, len(subs))
	customerIDSet := make(map[string]struct{})
	planIDSet := make(map[string]struct{})
	for i, sub := range subs {
		subIDs[i] = sub.ID
		customerIDSet[sub.CustomerID] = struct{}{}
		planIDSet[sub.PlanID] = struct{}{}
	}

	customerIDs := make([]string, 0, len(customerIDSet))
	for id := range customerIDSet {
		customerIDs = append(customerIDs, id)
	}
	planIDs := make([]string, 0, len(planIDSet))
	for id := range planIDSet {
		planIDs = append(planIDs, id)
	}

	customers, err := s.customerRepo.FindMany(ctx, customerIDs)
	if err != nil {
		return nil, err
	}
	plans, err := s.planRepo.FindMany(ctx, planIDs)
	if err != nil {
		return nil, err
	}
	itemsBySub, err := s.subscriptionRepo.GetItemsBatch(ctx, subIDs)
	if err != nil {
		return nil, err
	}

	customerNames := make(map[string]string, len(customers))
	for _, c := range customers {
		customerNames[c.ID] = c.Name
	}
	planNames := make(map[string]string, len(plans))
	for _, p := range plans {
		planNames[p.ID] = p.Name
	}

	for _, sub := range subs {
		views = append(views, &dto.SubscriptionView{
			ID:           sub.ID,
			CustomerID:   sub.CustomerID,
			CustomerName: customerNames[sub.CustomerID],
			PlanID:       sub.PlanID,
			PlanName:     planNames[sub.PlanID],
			Status:       string(sub.Status),
			StartDate:    sub.StartDate,
			EndDate:      sub.EndDate,
			AutoRenew:    sub.AutoRenew,
			Items:        itemViews(itemsBySub[sub.ID]),
			CreatedAt:    sub.CreatedAt,
			UpdatedAt:    sub.UpdatedAt,
		})
	}

	return views, nil
}

// checkItemsExist verifies every referenced item id against item master
// data before the bulk insert, so a bad reference surfaces as a constraint
// violation rather than a driver-specific foreign key error.
func (s *assignmentServiceImpl) checkItemsExist(ctx context.Context, items []*dto.AssignmentItem) error {
	idSet := make(map[string]struct{}, len(items))
	for _, item := range items {
		idSet[item.ItemID] = struct{}{}
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	found, err := s.itemRepo.FindMany(ctx, ids)
	if err != nil {
		return fmt.Errorf("get items: %w", err)
	}
	if len(found) != len(ids) {
		return apperr.Constraint(fmt.Errorf("some items not found"))
	}

	return nil
}
