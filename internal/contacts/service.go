package contacts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
)

type repository interface {
	List(ctx context.Context, companyID int64) ([]models.Contact, error)
	Create(ctx context.Context, contact *models.Contact) error
	Find(ctx context.Context, companyID, id int64) (*models.Contact, error)
}

// ContactDTO is a saved contact as returned by the API.
type ContactDTO struct {
	ID          int64     `json:"id"`
	Alias       string    `json:"alias"`
	ContactName string    `json:"contact_name"`
	PhoneNumber string    `json:"phone_number"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateInput carries the fields of a new reusable contact.
type CreateInput struct {
	Alias       string
	ContactName string
	PhoneNumber string
}

// Person is the name and phone printed on a purchase order.
type Person struct {
	Name  string
	Phone string
}

// Selection picks the purchase order contact: either a saved contact id or an
// inline person that is used once and not stored.
type Selection struct {
	ContactID *int64
	New       *Person
}

type Service struct {
	repo repository
}

func NewService(repo repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("contacts repository required")
	}
	return &Service{repo: repo}, nil
}

func (s *Service) List(ctx context.Context, companyID int64) ([]ContactDTO, error) {
	rows, err := s.repo.List(ctx, companyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list contacts")
	}
	out := make([]ContactDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, companyID, id int64) (*ContactDTO, error) {
	contact, err := s.find(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(*contact)
	return &dto, nil
}

// Create stores a reusable contact. This is the only path that persists one.
func (s *Service) Create(ctx context.Context, companyID int64, input CreateInput) (*ContactDTO, error) {
	person, err := validatePerson(Person{Name: input.ContactName, Phone: input.PhoneNumber})
	if err != nil {
		return nil, err
	}
	alias := strings.TrimSpace(input.Alias)
	if alias == "" {
		alias = person.Name
	}
	contact := &models.Contact{
		CompanyID:   companyID,
		Alias:       alias,
		ContactName: person.Name,
		PhoneNumber: person.Phone,
	}
	if err := s.repo.Create(ctx, contact); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create contact")
	}
	dto := toDTO(*contact)
	return &dto, nil
}

// Resolve turns a selection into the person printed on the purchase order.
func (s *Service) Resolve(ctx context.Context, companyID int64, sel Selection) (Person, error) {
	switch {
	case sel.ContactID != nil && sel.New != nil:
		return Person{}, pkgerrors.New(pkgerrors.CodeValidation, "choose either a saved contact or a new contact")
	case sel.ContactID != nil:
		contact, err := s.find(ctx, companyID, *sel.ContactID)
		if err != nil {
			return Person{}, err
		}
		return Person{Name: contact.ContactName, Phone: contact.PhoneNumber}, nil
	case sel.New != nil:
		return validatePerson(*sel.New)
	default:
		return Person{}, pkgerrors.New(pkgerrors.CodeValidation, "a contact is required")
	}
}

func (s *Service) find(ctx context.Context, companyID, id int64) (*models.Contact, error) {
	contact, err := s.repo.Find(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contact not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load contact")
	}
	return contact, nil
}

func validatePerson(p Person) (Person, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Phone = strings.TrimSpace(p.Phone)
	missing := []string{}
	if p.Name == "" {
		missing = append(missing, "contact_name")
	}
	if p.Phone == "" {
		missing = append(missing, "phone_number")
	}
	if len(missing) > 0 {
		return Person{}, pkgerrors.New(pkgerrors.CodeValidation, "contact is incomplete").
			WithDetails(map[string]any{"missing_fields": missing})
	}
	return p, nil
}

func toDTO(m models.Contact) ContactDTO {
	return ContactDTO{
		ID:          m.ID,
		Alias:       m.Alias,
		ContactName: m.ContactName,
		PhoneNumber: m.PhoneNumber,
		CreatedAt:   m.CreatedAt,
	}
}
