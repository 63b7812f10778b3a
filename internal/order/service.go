package order

import (
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"

	errors "github.com/frahmantamala/order-fulfillment/internal"
	"github.com/frahmantamala/order-fulfillment/internal/core/datamodel/order"
)

// Service owns order intake: one order per idempotency key, gateway order
// created at most once, duplicate-key races converged into reuse.
type Service struct {
	repo    RepositoryAPI
	gateway GatewayAPI
	catalog CatalogAPI
	logger  *slog.Logger
}

func NewService(repo RepositoryAPI, gateway GatewayAPI, catalog CatalogAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		gateway: gateway,
		catalog: catalog,
		logger:  logger,
	}
}

// CreateOrder implements the idempotent intake contract. A row that already
// carries a provider order id is returned as-is without contacting the
// gateway; a row without one (prior attempt crashed between insert and
// gateway call) is reused.
func (s *Service) CreateOrder(userID string, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	existing, err := s.repo.GetByIdempotencyKey(req.IdempotencyKey)
	if err != nil && !stderrors.Is(err, ErrNotFound) {
		return nil, classifyDBError(err)
	}

	if existing != nil && existing.HasProviderOrder() {
		s.logger.Info("order intake replay, returning existing order",
			"order_id", existing.ID,
			"idempotency_key", req.IdempotencyKey)
		return responseFor(existing, true), nil
	}

	row := existing
	if row == nil {
		row, err = s.insertOrder(userID, req)
		if err != nil {
			return nil, err
		}
		// the insert may have lost a race; a winner with a provider order
		// is a replay, a winner without one is reused like a crashed attempt
		if row.HasProviderOrder() {
			return responseFor(row, true), nil
		}
	}

	s.resolveSeller(row)

	return s.createProviderOrder(row)
}

// GetOrder returns one order by id.
func (s *Service) GetOrder(id int64) (*order.Order, error) {
	row, err := s.repo.GetByID(id)
	if err != nil {
		if stderrors.Is(err, ErrNotFound) {
			return nil, errors.ErrOrderNotFound
		}
		return nil, classifyDBError(err)
	}
	return row, nil
}

func (s *Service) insertOrder(userID string, req *CreateOrderRequest) (*order.Order, error) {
	metadata, _, err := order.NormalizeMetadata(req.Metadata)
	if err != nil {
		s.logger.Error("order metadata is not valid JSON", "error", err, "idempotency_key", req.IdempotencyKey)
		return nil, errors.NewValidationError("metadata must be a JSON object", errors.ErrCodeInvalidBody)
	}

	amountUnit := req.AmountUnit
	if amountUnit != order.AmountUnitMinor && amountUnit != order.AmountUnitMajor {
		amountUnit = order.AmountUnitMinor
	}

	row := &order.Order{
		IdempotencyKey: req.IdempotencyKey,
		Amount:         req.Amount,
		AmountUnit:     amountUnit,
		Currency:       req.Currency,
		Status:         order.StatusPending,
		Metadata:       metadata,
	}
	if userID != "" {
		row.UserID = &userID
	}

	err = s.repo.Create(row)
	if err == nil {
		s.logger.Info("order created",
			"order_id", row.ID,
			"idempotency_key", row.IdempotencyKey,
			"amount", row.Amount,
			"currency", row.Currency)
		return row, nil
	}

	// two concurrent requests with the same key: losing the insert race is
	// convergence, not failure - re-read the winner's row
	if stderrors.Is(err, ErrDuplicateKey) {
		s.logger.Info("idempotency key race detected, reusing existing order",
			"idempotency_key", req.IdempotencyKey)
		winner, readErr := s.repo.GetByIdempotencyKey(req.IdempotencyKey)
		if readErr != nil {
			return nil, classifyDBError(readErr)
		}
		return winner, nil
	}

	s.logger.Error("order insert failed", "error", err, "idempotency_key", req.IdempotencyKey)
	return nil, classifyDBError(err)
}

// resolveSeller stores the seller redundantly on the row and inside metadata
// for consumers that only read one or the other. Failures never block intake.
func (s *Service) resolveSeller(row *order.Order) {
	if row.SellerID != nil {
		return
	}

	info, err := order.ParseShippingInfo(row.Metadata)
	if err != nil || info.ProductID == nil {
		return
	}
	if info.SellerID != nil {
		if err := s.repo.SetSeller(row.ID, *info.SellerID); err == nil {
			row.SellerID = info.SellerID
		}
		return
	}

	sellerID, err := s.catalog.ResolveSellerID(*info.ProductID)
	if err != nil {
		s.logger.Warn("seller resolution failed",
			"order_id", row.ID,
			"product_id", *info.ProductID,
			"error", err)
		return
	}

	if err := s.repo.SetSeller(row.ID, sellerID); err != nil {
		s.logger.Warn("failed to store resolved seller", "order_id", row.ID, "error", err)
		return
	}
	if err := s.repo.MergeMetadata(row.ID, map[string]interface{}{"seller_id": sellerID}); err != nil {
		s.logger.Warn("failed to merge seller into metadata", "order_id", row.ID, "error", err)
	}
	row.SellerID = &sellerID
}

func (s *Service) createProviderOrder(row *order.Order) (*CreateOrderResponse, error) {
	info, _ := order.ParseShippingInfo(row.Metadata)
	notes := map[string]interface{}{}
	if info != nil {
		if name := info.ConsigneeName(); name != "" {
			notes["customer_name"] = name
		}
		if info.Phone != "" {
			notes["phone"] = info.Phone
		}
		if info.Email != "" {
			notes["email"] = info.Email
		}
	}

	receipt := fmt.Sprintf("order_%d", row.ID)
	providerOrder, err := s.gateway.CreateOrder(row.Amount, row.Currency, receipt, notes)
	if err != nil {
		// the local row stays for audit and manual retry
		if updateErr := s.repo.UpdateStatus(row.ID, order.StatusFailed); updateErr != nil {
			s.logger.Error("failed to mark order failed after gateway error",
				"order_id", row.ID,
				"error", updateErr)
		}
		s.logger.Error("gateway order creation failed",
			"order_id", row.ID,
			"idempotency_key", row.IdempotencyKey,
			"error", err)
		return nil, errors.NewProviderError("payment gateway rejected order creation", err)
	}

	if err := s.repo.SetProviderOrder(row.ID, providerOrder.ID, providerOrder.Raw); err != nil {
		s.logger.Error("failed to persist provider order id",
			"order_id", row.ID,
			"provider_order_id", providerOrder.ID,
			"error", err)
		return nil, classifyDBError(err)
	}

	row.ProviderOrderID = &providerOrder.ID
	s.logger.Info("provider order attached",
		"order_id", row.ID,
		"provider_order_id", providerOrder.ID)

	return responseFor(row, false), nil
}

func responseFor(row *order.Order, idempotent bool) *CreateOrderResponse {
	resp := &CreateOrderResponse{
		OrderID:    row.ID,
		Amount:     row.Amount,
		Currency:   row.Currency,
		Status:     row.Status,
		Idempotent: idempotent,
	}
	if row.ProviderOrderID != nil {
		resp.ProviderOrderID = *row.ProviderOrderID
	}
	return resp
}

// classifyDBError maps driver failures onto the intake error contract.
func classifyDBError(err error) *errors.AppError {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42P01":
			return errors.NewDBError(errors.ErrCodeSchemaMissing, err)
		case "42501":
			return errors.NewDBError(errors.ErrCodeDBPermissionDenied, err)
		}
	}
	return errors.NewDBError(errors.ErrCodeDBInsertFailed, err)
}
