package dbtest

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	"github.com/angelmondragon/procurement-backend/pkg/types"
)

func SeedCompany(t testing.TB, db *gorm.DB, name string) models.Company {
	t.Helper()
	company := models.Company{Name: name, Email: "buyer@" + name + ".test"}
	require.NoError(t, db.Create(&company).Error)
	return company
}

func SeedSupplier(t testing.TB, db *gorm.DB, name string) models.Supplier {
	t.Helper()
	supplier := models.Supplier{Name: name, Email: "orders@" + name + ".test"}
	require.NoError(t, db.Create(&supplier).Error)
	return supplier
}

// SeedProduct creates an active product priced without VAT at price and a 25% VAT rate.
func SeedProduct(t testing.TB, db *gorm.DB, supplierID int64, sku, price string) models.Product {
	t.Helper()
	net := decimal.RequireFromString(price)
	rate := decimal.RequireFromString("0.25")
	product := models.Product{
		SupplierID:      supplierID,
		SKU:             sku,
		Name:            "Product " + sku,
		Unit:            "pcs",
		PriceWithoutVAT: net,
		PriceWithVAT:    net.Mul(decimal.NewFromInt(1).Add(rate)).Round(2),
		VATRate:         rate,
		StockQuantity:   100,
		Active:          true,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func SeedDeliveryLocation(t testing.TB, db *gorm.DB, companyID int64, town string) models.DeliveryLocation {
	t.Helper()
	loc := models.DeliveryLocation{
		CompanyID: companyID,
		Address:   SampleAddress(town),
	}
	require.NoError(t, db.Create(&loc).Error)
	return loc
}

func SeedPickupLocation(t testing.TB, db *gorm.DB, supplierID int64, town string) models.PickupLocation {
	t.Helper()
	loc := models.PickupLocation{
		SupplierID: supplierID,
		Address:    SampleAddress(town),
	}
	require.NoError(t, db.Create(&loc).Error)
	return loc
}

func SeedContact(t testing.TB, db *gorm.DB, companyID int64, name string) models.Contact {
	t.Helper()
	contact := models.Contact{
		CompanyID:   companyID,
		Alias:       name,
		ContactName: name,
		PhoneNumber: "+4512345678",
	}
	require.NoError(t, db.Create(&contact).Error)
	return contact
}

// SampleAddress returns a complete postal address in the given town.
func SampleAddress(town string) types.PostalAddress {
	return types.PostalAddress{
		LocationName:  town + " depot",
		StreetAddress: "1 Harbour Street",
		PostalCode:    "1000",
		Town:          town,
		Country:       "DK",
	}
}
