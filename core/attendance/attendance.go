package attendance

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/darulhuda/madrasa/core"
)

// entry statuses
const (
	Present = "present"
	Absent  = "absent"
	Late    = "late"
	Leave   = "leave"
)

const DateLayout = "2006-01-02"

var (
	ErrNotFound = errors.New("attendance sheet not found")
	ErrLocked   = errors.New("attendance locked")

	statuses = map[string]bool{Present: true, Absent: true, Late: true, Leave: true}
)

type (
	// Sheet is the attendance of a class on a date. A sheet can be edited once after being taken,
	// then it is locked until an admin unlocks it.
	Sheet struct {
		ID        string            `json:"id"`
		Class     string            `json:"class"`
		Date      string            `json:"date"`    // YYYY-MM-DD
		Entries   map[string]string `json:"entries"` // {roll: status}
		TakenBy   string            `json:"taken_by"`
		Edits     int               `json:"edits"`
		Locked    bool              `json:"locked"`
		CreatedAt time.Time         `json:"created_at"` // UTC
		UpdatedAt time.Time         `json:"updated_at"` // UTC
	}

	SubmitSheet struct {
		Class   string            `json:"class" validate:"required,notblank,max=30"`
		Date    string            `json:"date" validate:"required,datetime=2006-01-02"`
		Entries map[string]string `json:"entries" validate:"required,min=1,dive,keys,numeric,endkeys,oneof=present absent late leave"`
	}

	// Entry is the attendance of one student on a date.
	Entry struct {
		Date   string `json:"date"`
		Status string `json:"status"`
	}

	// Summary counts the entries of a class on a date.
	Summary struct {
		Class   string `json:"class"`
		Date    string `json:"date"`
		Present int    `json:"present"`
		Absent  int    `json:"absent"`
		Late    int    `json:"late"`
		Leave   int    `json:"leave"`
		Total   int    `json:"total"`
	}

	Repository interface {
		// FindSheet returns ErrNotFound when class has no sheet on date.
		FindSheet(ctx context.Context, class, date string) (Sheet, error)
		GetSheet(ctx context.Context, id string) (Sheet, error)
		CreateSheet(ctx context.Context, s Sheet) (Sheet, error)
		// EditSheet replaces the entries of an unlocked sheet and locks it; ErrLocked if it was locked.
		EditSheet(ctx context.Context, s Sheet) (Sheet, error)
		UnlockSheet(ctx context.Context, id string) (Sheet, error)
		QuerySheets(ctx context.Context, class, date string) ([]Sheet, error)
		SaveSummary(ctx context.Context, sum Summary) error
		QuerySummaries(ctx context.Context, date string) ([]Summary, error)
	}

	Service struct {
		repo Repository
	}
)

func (ss SubmitSheet) Validate(validate *validator.Validate) error {
	return validate.Struct(ss)
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Submit takes the attendance of a class: the first submission creates the sheet,
// the second one replaces its entries and locks it, the following ones fail with ErrLocked.
func (svc *Service) Submit(ctx context.Context, teacherID string, ss SubmitSheet) (Sheet, error) {
	class := core.CleanString(ss.Class)
	for _, status := range ss.Entries {
		if !statuses[status] {
			return Sheet{}, core.NewFieldValidationError("entries", errors.Errorf("unknown status %q", status))
		}
	}

	now := core.NowFunc().UTC()
	sheet, err := svc.repo.FindSheet(ctx, class, ss.Date)
	switch {
	case errors.Cause(err) == ErrNotFound:
		sheet = Sheet{
			Class:     class,
			Date:      ss.Date,
			Entries:   ss.Entries,
			TakenBy:   teacherID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		sheet, err = svc.repo.CreateSheet(ctx, sheet)
		return sheet, errors.Wrap(err, "creating sheet")
	case err != nil:
		return Sheet{}, errors.Wrap(err, "finding sheet")
	}

	if sheet.Locked {
		return Sheet{}, ErrLocked
	}
	sheet.Entries = ss.Entries
	sheet.TakenBy = teacherID
	sheet.UpdatedAt = now
	sheet, err = svc.repo.EditSheet(ctx, sheet)
	if errors.Cause(err) == ErrLocked {
		return Sheet{}, ErrLocked
	}
	return sheet, errors.Wrap(err, "editing sheet")
}

// Unlock allows one more edit of a locked sheet.
func (svc *Service) Unlock(ctx context.Context, id string) (Sheet, error) {
	return svc.repo.UnlockSheet(ctx, id)
}

func (svc *Service) Sheets(ctx context.Context, class, date string) ([]Sheet, error) {
	sheets, err := svc.repo.QuerySheets(ctx, core.CleanString(class), date)
	return sheets, errors.Wrap(err, "querying sheets")
}

// StudentEntries returns the attendance of the student with roll in class, oldest first.
func (svc *Service) StudentEntries(ctx context.Context, class string, roll int) ([]Entry, error) {
	sheets, err := svc.repo.QuerySheets(ctx, core.CleanString(class), "")
	if err != nil {
		return nil, errors.Wrap(err, "querying sheets")
	}
	key := strconv.Itoa(roll)
	entries := make([]Entry, 0, len(sheets))
	for _, s := range sheets {
		if status, ok := s.Entries[key]; ok {
			entries = append(entries, Entry{Date: s.Date, Status: status})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Date < entries[j].Date })
	return entries, nil
}

// Summarize counts the entries of every sheet taken on date and saves one Summary per class.
func (svc *Service) Summarize(ctx context.Context, date string) ([]Summary, error) {
	sheets, err := svc.repo.QuerySheets(ctx, "", date)
	if err != nil {
		return nil, errors.Wrap(err, "querying sheets")
	}

	sums := make([]Summary, 0, len(sheets))
	for _, s := range sheets {
		sum := Summary{Class: s.Class, Date: s.Date}
		for _, status := range s.Entries {
			switch status {
			case Present:
				sum.Present++
			case Absent:
				sum.Absent++
			case Late:
				sum.Late++
			case Leave:
				sum.Leave++
			}
			sum.Total++
		}
		if err := svc.repo.SaveSummary(ctx, sum); err != nil {
			return nil, errors.Wrapf(err, "saving summary of %s", s.Class)
		}
		sums = append(sums, sum)
	}
	sort.Slice(sums, func(i, j int) bool { return sums[i].Class < sums[j].Class })
	return sums, nil
}

func (svc *Service) Summaries(ctx context.Context, date string) ([]Summary, error) {
	sums, err := svc.repo.QuerySummaries(ctx, date)
	return sums, errors.Wrap(err, "querying summaries")
}
