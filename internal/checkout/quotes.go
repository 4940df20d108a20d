package checkout

import (
	"context"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/henriqueponts/labstore-sub002/pkg/errors"
	"github.com/henriqueponts/labstore-sub002/pkg/freight"
	"github.com/henriqueponts/labstore-sub002/pkg/types"
)

// QuoteFreight lists carrier options for the customer's cart. The destination
// is postalCode when given, otherwise the stored address.
func (s *service) QuoteFreight(ctx context.Context, customerID uuid.UUID, postalCode string) ([]freight.Option, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity required")
	}
	lines, err := s.carts.ListLines(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	destination := strings.TrimSpace(postalCode)
	if destination == "" {
		customer, err := s.customers.FindByID(ctx, customerID)
		if err != nil {
			return nil, err
		}
		destination = customer.Address.PostalCode
	}
	if len(types.NormalizePostalCode(destination)) != 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid destination postal code is required")
	}

	return s.freight.Quote(ctx, freight.QuoteRequest{
		OriginPostalCode:      s.cfg.OriginPostalCode,
		DestinationPostalCode: destination,
		Parcels:               parcelsFor(lines),
	})
}
