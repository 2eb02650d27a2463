package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/shiny-beauty/api/internal/domain"
	pfirestore "github.com/shiny-beauty/api/internal/platform/firestore"
	"github.com/shiny-beauty/api/internal/repositories"
)

const programsCollection = "salePrograms"

// ProgramRepository persists sale programs.
type ProgramRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[programDocument]
}

// NewProgramRepository constructs a Firestore-backed program repository.
func NewProgramRepository(provider *pfirestore.Provider) (*ProgramRepository, error) {
	if provider == nil {
		return nil, errors.New("program repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[programDocument](provider, programsCollection, nil, nil)
	return &ProgramRepository{provider: provider, base: base}, nil
}

// Insert stores a new program document. The ID must be unique.
func (r *ProgramRepository) Insert(ctx context.Context, program domain.SaleProgram) error {
	if r == nil || r.base == nil {
		return errors.New("program repository not initialised")
	}
	programID := strings.TrimSpace(program.ID)
	if programID == "" {
		return errors.New("program repository: program id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, programID)
	if err != nil {
		return err
	}
	if _, err := docRef.Create(ctx, encodeProgramDocument(program)); err != nil {
		return pfirestore.WrapError("programs.insert", err)
	}
	return nil
}

// Update replaces the persisted program state with the provided snapshot.
// The existence check and the write run in one transaction so an update can
// never resurrect a program deleted underneath it.
func (r *ProgramRepository) Update(ctx context.Context, program domain.SaleProgram) error {
	if r == nil || r.base == nil {
		return errors.New("program repository not initialised")
	}
	programID := strings.TrimSpace(program.ID)
	if programID == "" {
		return errors.New("program repository: program id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, programID)
	if err != nil {
		return err
	}
	doc := encodeProgramDocument(program)
	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(docRef); err != nil {
			return err
		}
		return tx.Set(docRef, doc)
	})
}

// Delete removes the program document.
func (r *ProgramRepository) Delete(ctx context.Context, programID string) error {
	if r == nil || r.base == nil {
		return errors.New("program repository not initialised")
	}
	programID = strings.TrimSpace(programID)
	if programID == "" {
		return errors.New("program repository: program id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, programID)
	if err != nil {
		return err
	}
	if _, err := docRef.Delete(ctx); err != nil {
		return pfirestore.WrapError("programs.delete", err)
	}
	return nil
}

// FindByID fetches a single program.
func (r *ProgramRepository) FindByID(ctx context.Context, programID string) (domain.SaleProgram, error) {
	if r == nil || r.base == nil {
		return domain.SaleProgram{}, errors.New("program repository not initialised")
	}
	programID = strings.TrimSpace(programID)
	if programID == "" {
		return domain.SaleProgram{}, errors.New("program repository: program id is required")
	}
	doc, err := r.base.Get(ctx, programID)
	if err != nil {
		return domain.SaleProgram{}, err
	}
	return decodeProgramDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime), nil
}

// List returns programs ordered by start date ascending, then id ascending.
func (r *ProgramRepository) List(ctx context.Context, filter repositories.ProgramListFilter) (domain.CursorPage[domain.SaleProgram], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.SaleProgram]{}, errors.New("program repository not initialised")
	}

	limit := filter.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(filter.PageToken); token != "" {
		tokenTime, tokenID, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.SaleProgram]{}, fmt.Errorf("program repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	programType := strings.TrimSpace(string(filter.Type))

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if programType != "" {
			q = q.Where("type", "==", programType)
		}
		q = q.OrderBy("startsAt", firestore.Asc).OrderBy(firestore.DocumentID, firestore.Asc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.SaleProgram]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		tokenTime := last.Data.StartsAt
		if tokenTime.IsZero() {
			tokenTime = last.CreateTime
		}
		nextToken = encodeListToken(tokenTime, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.SaleProgram, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeProgramDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime))
	}

	return domain.CursorPage[domain.SaleProgram]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

// ListEnabled returns every enabled program in the documented iteration
// order: start date ascending, then id ascending. Window filtering against
// the current time is the caller's concern.
func (r *ProgramRepository) ListEnabled(ctx context.Context) ([]domain.SaleProgram, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("program repository not initialised")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("isActive", "==", true)
	})
	if err != nil {
		return nil, err
	}

	items := make([]domain.SaleProgram, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeProgramDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime))
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].StartsAt.Equal(items[j].StartsAt) {
			return items[i].StartsAt.Before(items[j].StartsAt)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

type programDocument struct {
	Title       string                    `firestore:"title"`
	Description string                    `firestore:"description"`
	Badge       string                    `firestore:"badge,omitempty"`
	Type        string                    `firestore:"type"`
	Benefits    programBenefitsDocument   `firestore:"benefits"`
	Conditions  programConditionsDocument `firestore:"conditions"`
	StartsAt    time.Time                 `firestore:"startsAt"`
	EndsAt      time.Time                 `firestore:"endsAt"`
	Active      bool                      `firestore:"isActive"`
	CreatedAt   time.Time                 `firestore:"createdAt"`
	UpdatedAt   time.Time                 `firestore:"updatedAt"`
}

type programBenefitsDocument struct {
	DiscountPercent *int   `firestore:"discountPercent,omitempty"`
	DiscountAmount  *int64 `firestore:"discountAmount,omitempty"`
	FreeShipping    bool   `firestore:"freeShipping"`
}

type programConditionsDocument struct {
	AllProducts bool     `firestore:"allProducts"`
	ProductIDs  []string `firestore:"productIds"`
	CategoryIDs []string `firestore:"categoryIds"`
	Brands      []string `firestore:"brands"`
}

func encodeProgramDocument(program domain.SaleProgram) programDocument {
	return programDocument{
		Title:       strings.TrimSpace(program.Title),
		Description: strings.TrimSpace(program.Description),
		Badge:       strings.TrimSpace(program.Badge),
		Type:        strings.TrimSpace(string(program.Type)),
		Benefits: programBenefitsDocument{
			DiscountPercent: program.Benefits.DiscountPercent,
			DiscountAmount:  program.Benefits.DiscountAmount,
			FreeShipping:    program.Benefits.FreeShipping,
		},
		Conditions: programConditionsDocument{
			AllProducts: program.Conditions.AllProducts,
			ProductIDs:  cloneStrings(program.Conditions.ProductIDs),
			CategoryIDs: cloneStrings(program.Conditions.CategoryIDs),
			Brands:      cloneStrings(program.Conditions.Brands),
		},
		StartsAt:  program.StartsAt.UTC(),
		EndsAt:    program.EndsAt.UTC(),
		Active:    program.Active,
		CreatedAt: program.CreatedAt.UTC(),
		UpdatedAt: program.UpdatedAt.UTC(),
	}
}

func decodeProgramDocument(id string, doc programDocument, createTime, updateTime time.Time) domain.SaleProgram {
	program := domain.SaleProgram{
		ID:          id,
		Title:       doc.Title,
		Description: doc.Description,
		Badge:       doc.Badge,
		Type:        domain.ProgramType(doc.Type),
		Benefits: domain.ProgramBenefits{
			DiscountPercent: doc.Benefits.DiscountPercent,
			DiscountAmount:  doc.Benefits.DiscountAmount,
			FreeShipping:    doc.Benefits.FreeShipping,
		},
		Conditions: domain.ProgramConditions{
			AllProducts: doc.Conditions.AllProducts,
			ProductIDs:  cloneStrings(doc.Conditions.ProductIDs),
			CategoryIDs: cloneStrings(doc.Conditions.CategoryIDs),
			Brands:      cloneStrings(doc.Conditions.Brands),
		},
		StartsAt:  doc.StartsAt,
		EndsAt:    doc.EndsAt,
		Active:    doc.Active,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	if program.CreatedAt.IsZero() {
		program.CreatedAt = createTime
	}
	if program.UpdatedAt.IsZero() {
		program.UpdatedAt = updateTime
	}
	return program
}
