package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/webscoutlabs/webscout/internal/model"
)

// CrawlRepository defines DB ops around finished crawl runs.
type CrawlRepository interface {
	SaveResult(res *model.CrawlResult) error
	FindByCrawlID(crawlID string) (*model.CrawlRecord, error)
	ListRecent(limit int) ([]model.CrawlRecord, error)
	ListPages(crawlID string) ([]model.PageRecord, error)
	ListErrors(crawlID string) ([]model.ErrorRecord, error)
	Delete(crawlID string) error
}

type crawlRepo struct {
	db *gorm.DB
}

func NewCrawlRepo(db *gorm.DB) CrawlRepository {
	return &crawlRepo{db: db}
}

// SaveResult stores the run document plus queryable page, link and error
// rows in one transaction.
func (r *crawlRepo) SaveResult(res *model.CrawlResult) error {
	rec, err := model.CrawlRecordFromResult(res)
	if err != nil {
		return err
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		for _, p := range res.Pages {
			row := model.PageRecord{
				CrawlID:    res.Metadata.CrawlID,
				URL:        p.URL,
				Title:      p.Title,
				StatusCode: p.StatusCode,
				Depth:      p.Depth,
				ParentURL:  p.ParentURL,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		for _, l := range res.Links {
			row := model.LinkRecord{
				CrawlID:     res.Metadata.CrawlID,
				FromURL:     l.From,
				ToURL:       l.To,
				Label:       l.Label,
				Selector:    l.Selector,
				ElementType: l.ElementType,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		for _, e := range res.Errors {
			row := model.ErrorRecord{
				CrawlID:       res.Metadata.CrawlID,
				URL:           e.URL,
				Type:          string(e.Type),
				Message:       e.Message,
				RetryAttempts: e.RetryAttempts,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *crawlRepo) FindByCrawlID(crawlID string) (*model.CrawlRecord, error) {
	var rec model.CrawlRecord
	if err := r.db.Where("crawl_id = ?", crawlID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *crawlRepo) ListRecent(limit int) ([]model.CrawlRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var recs []model.CrawlRecord
	if err := r.db.Order("started_at DESC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *crawlRepo) ListPages(crawlID string) ([]model.PageRecord, error) {
	var rows []model.PageRecord
	if err := r.db.Where("crawl_id = ?", crawlID).Order("depth, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *crawlRepo) ListErrors(crawlID string) ([]model.ErrorRecord, error) {
	var rows []model.ErrorRecord
	if err := r.db.Where("crawl_id = ?", crawlID).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete removes the run and its child rows.
func (r *crawlRepo) Delete(crawlID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("crawl_id = ?", crawlID).Delete(&model.CrawlRecord{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("crawl not found")
		}
		for _, m := range []any{&model.PageRecord{}, &model.LinkRecord{}, &model.ErrorRecord{}} {
			if err := tx.Where("crawl_id = ?", crawlID).Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
