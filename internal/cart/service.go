package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/procurement-backend/internal/address"
	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
	"github.com/angelmondragon/procurement-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLookup interface {
	FindActive(ctx context.Context, id int64) (*models.Product, error)
}

type locationLookup interface {
	FindDelivery(ctx context.Context, companyID, id int64) (*models.DeliveryLocation, error)
	FindPickup(ctx context.Context, supplierID, id int64) (*models.PickupLocation, error)
}

// Service exposes cart operations. Every mutation returns the cart re-read
// from storage after the write.
type Service interface {
	Get(ctx context.Context, owner Owner) (*Cart, error)
	Add(ctx context.Context, owner Owner, input AddLineInput) (*Cart, error)
	UpdateQuantity(ctx context.Context, owner Owner, lineID uuid.UUID, quantity int) (*Cart, error)
	Remove(ctx context.Context, owner Owner, lineID uuid.UUID) (*Cart, error)
	SetGroupDelivery(ctx context.Context, owner Owner, supplierID int64, input GroupDeliveryInput) (*Cart, error)
	SetGroupAddress(ctx context.Context, owner Owner, supplierID int64, input GroupAddressInput) (*Cart, error)
}

type AddLineInput struct {
	ProductID int64
	Quantity  int
}

type GroupDeliveryInput struct {
	Method       enums.DeliveryMethod
	PaymentTerms enums.PaymentTerms
}

// GroupAddressInput must set exactly one source.
type GroupAddressInput struct {
	DeliveryLocationID *int64
	PickupLocationID   *int64
	Custom             *types.PostalAddress
}

type service struct {
	repo      LineRepository
	tx        txRunner
	products  productLookup
	locations locationLookup
	queue     *Queue
	logg      *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo LineRepository, tx txRunner, products productLookup, locations locationLookup, queue *Queue, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	if locations == nil {
		return nil, fmt.Errorf("location lookup required")
	}
	if queue == nil {
		return nil, fmt.Errorf("cart queue required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		products:  products,
		locations: locations,
		queue:     queue,
		logg:      logg,
	}, nil
}

func (s *service) Get(ctx context.Context, owner Owner) (*Cart, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}
	return s.load(ctx, owner)
}

func (s *service) load(ctx context.Context, owner Owner) (*Cart, error) {
	lines, err := s.repo.List(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load cart")
	}
	return newCart(lines), nil
}

// Add snapshots the product's supplier and prices. A new line joins its
// supplier group with the group's current delivery settings.
func (s *service) Add(ctx context.Context, owner Owner, input AddLineInput) (*Cart, error) {
	return s.mutate(ctx, owner, "add", func(ctx context.Context) error {
		product, err := s.products.FindActive(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load product")
		}

		line := &models.CartLine{
			CompanyID:           owner.CompanyID,
			UserID:              owner.UserID,
			ProductID:           product.ID,
			ProductName:         product.Name,
			SupplierID:          product.SupplierID,
			Quantity:            clampQuantity(input.Quantity),
			UnitPriceWithoutVAT: product.PriceWithoutVAT,
			UnitPriceWithVAT:    product.PriceWithVAT,
			DeliveryMethod:      enums.DeliveryMethodShipping,
			PaymentTerms:        enums.PaymentTermsPrepayment,
		}
		if product.Supplier != nil {
			line.SupplierName = product.Supplier.Name
		}

		siblings, err := s.repo.ListBySupplier(ctx, owner, product.SupplierID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load supplier group")
		}
		if len(siblings) > 0 {
			first := siblings[0]
			line.DeliveryMethod = first.DeliveryMethod
			line.PaymentTerms = first.PaymentTerms
			line.DeliveryLocationID = first.DeliveryLocationID
			line.PickupLocationID = first.PickupLocationID
			line.CustomAddress = first.CustomAddress
		}

		if err := s.repo.UpsertLine(ctx, line); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "save cart line")
		}
		return nil
	})
}

func (s *service) UpdateQuantity(ctx context.Context, owner Owner, lineID uuid.UUID, quantity int) (*Cart, error) {
	return s.mutate(ctx, owner, "update_quantity", func(ctx context.Context) error {
		ok, err := s.repo.UpdateQuantity(ctx, owner, lineID, clampQuantity(quantity))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update cart line")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		return nil
	})
}

func (s *service) Remove(ctx context.Context, owner Owner, lineID uuid.UUID) (*Cart, error) {
	return s.mutate(ctx, owner, "remove", func(ctx context.Context) error {
		ok, err := s.repo.Delete(ctx, owner, lineID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "remove cart line")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		return nil
	})
}

// SetGroupDelivery switches every line of the supplier group to method and
// terms, clearing the address sources the new method does not use.
func (s *service) SetGroupDelivery(ctx context.Context, owner Owner, supplierID int64, input GroupDeliveryInput) (*Cart, error) {
	if !input.Method.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid delivery method %q", input.Method)
	}
	if !input.PaymentTerms.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment terms %q", input.PaymentTerms)
	}

	return s.mutate(ctx, owner, "set_group_delivery", func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			lines, err := groupLines(ctx, repo, owner, supplierID)
			if err != nil {
				return err
			}
			for _, line := range lines {
				sel := address.ClearForMethod(address.SelectionFromLine(line), input.Method)
				if err := repo.UpdateSelection(ctx, owner, line.ID, input.PaymentTerms, sel); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update cart line delivery")
				}
			}
			return nil
		})
	})
}

// SetGroupAddress stores one address source on every line of the group and
// clears the other two.
func (s *service) SetGroupAddress(ctx context.Context, owner Owner, supplierID int64, input GroupAddressInput) (*Cart, error) {
	want, err := input.method()
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, owner, "set_group_address", func(ctx context.Context) error {
		if err := s.checkLocation(ctx, owner, supplierID, input); err != nil {
			return err
		}

		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			lines, err := groupLines(ctx, repo, owner, supplierID)
			if err != nil {
				return err
			}
			for _, line := range lines {
				if line.DeliveryMethod != want {
					return pkgerrors.New(pkgerrors.CodeValidation, "address source does not match the group's delivery method").
						WithDetails(map[string]any{
							"supplier_id":     supplierID,
							"delivery_method": line.DeliveryMethod,
						})
				}
			}
			for _, line := range lines {
				sel := address.Selection{
					Method:             line.DeliveryMethod,
					DeliveryLocationID: input.DeliveryLocationID,
					PickupLocationID:   input.PickupLocationID,
				}
				if input.Custom != nil {
					sel.Custom = input.Custom.Trimmed()
				}
				if err := repo.UpdateSelection(ctx, owner, line.ID, line.PaymentTerms, sel); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update cart line address")
				}
			}
			return nil
		})
	})
}

func (s *service) checkLocation(ctx context.Context, owner Owner, supplierID int64, input GroupAddressInput) error {
	var err error
	switch {
	case input.DeliveryLocationID != nil:
		_, err = s.locations.FindDelivery(ctx, owner.CompanyID, *input.DeliveryLocationID)
	case input.PickupLocationID != nil:
		_, err = s.locations.FindPickup(ctx, supplierID, *input.PickupLocationID)
	default:
		return nil
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "location not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load location")
}

// mutate serialises fn behind the owner's queue slot and re-reads the cart
// before releasing it.
func (s *service) mutate(ctx context.Context, owner Owner, op string, fn func(ctx context.Context) error) (*Cart, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}

	var out *Cart
	err := s.queue.Do(ctx, owner, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return err
		}
		cart, err := s.load(ctx, owner)
		if err != nil {
			return err
		}
		out = cart
		return nil
	})
	if err != nil {
		err = contextError(err)
		ctx = s.logg.WithFields(ctx, map[string]any{
			"cart_op":    op,
			"company_id": owner.CompanyID,
			"user_id":    owner.UserID.String(),
		})
		s.logg.Error(ctx, "cart mutation failed", err)
		return nil, err
	}
	return out, nil
}

func (in GroupAddressInput) method() (enums.DeliveryMethod, error) {
	count := 0
	method := enums.DeliveryMethodShipping
	if in.DeliveryLocationID != nil {
		count++
	}
	if in.PickupLocationID != nil {
		count++
		method = enums.DeliveryMethodPickup
	}
	if in.Custom != nil {
		if in.Custom.IsEmpty() {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "custom address is empty")
		}
		count++
	}
	if count != 1 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "exactly one address source is required")
	}
	return method, nil
}

func groupLines(ctx context.Context, repo LineRepository, owner Owner, supplierID int64) ([]models.CartLine, error) {
	lines, err := repo.ListBySupplier(ctx, owner, supplierID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load supplier group")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no cart lines for supplier")
	}
	return lines, nil
}

func clampQuantity(quantity int) int {
	if quantity < 1 {
		return 1
	}
	return quantity
}

func contextError(err error) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, "cart request timed out")
	case errors.Is(err, context.Canceled):
		return pkgerrors.Wrap(pkgerrors.CodeAborted, err, "cart request canceled")
	}
	return err
}
