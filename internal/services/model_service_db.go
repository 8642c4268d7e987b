package services

import (
	"errors"

	"dtbase_go_backend/internal/models"

	"gorm.io/gorm"
)

// ModelStoreDB is the persistence boundary for the causal model.
type ModelStoreDB interface {
	SaveNode(node *models.Node) error
	GetNode(nodeID string) (*models.Node, error)
	DeleteNode(nodeID string) error

	SaveLink(link *models.Link) error
	GetLink(linkID string) (*models.Link, error)
	DeleteLink(linkID string) error

	SaveReference(ref *models.Reference) error
	SaveReferences(refs []models.Reference) error
	GetReference(refID string) (*models.Reference, error)
	DeleteReference(refID string) error

	ListNodes() ([]models.Node, error)
	ListLinks() ([]models.Link, error)
	ListReferences() ([]models.Reference, error)

	Clear() error
}

// DefaultModelStore implements ModelStoreDB on gorm.
type DefaultModelStore struct {
	db *gorm.DB
}

func NewModelStoreDB(db *gorm.DB) ModelStoreDB {
	return &DefaultModelStore{db: db}
}

func (s *DefaultModelStore) SaveNode(node *models.Node) error {
	return s.db.Create(node).Error
}

func (s *DefaultModelStore) GetNode(nodeID string) (*models.Node, error) {
	var node models.Node
	if err := s.db.Where("node_id = ?", nodeID).First(&node).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &node, nil
}

// DeleteNode removes the node and every link touching it. Deletes are
// unscoped: soft-deleted rows would still occupy the unique indexes and
// block re-adding a freed id.
func (s *DefaultModelStore) DeleteNode(nodeID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("node_id = ?", nodeID).Delete(&models.Node{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Where("parent_id = ? OR child_id = ?", nodeID, nodeID).Delete(&models.Link{}).Error
	})
}

func (s *DefaultModelStore) SaveLink(link *models.Link) error {
	return s.db.Create(link).Error
}

func (s *DefaultModelStore) GetLink(linkID string) (*models.Link, error) {
	var link models.Link
	if err := s.db.Where("link_id = ?", linkID).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

func (s *DefaultModelStore) DeleteLink(linkID string) error {
	return s.db.Unscoped().Where("link_id = ?", linkID).Delete(&models.Link{}).Error
}

func (s *DefaultModelStore) SaveReference(ref *models.Reference) error {
	return s.db.Create(ref).Error
}

// SaveReferences persists a batch in a single transaction.
func (s *DefaultModelStore) SaveReferences(refs []models.Reference) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for i := range refs {
			if err := tx.Create(&refs[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *DefaultModelStore) GetReference(refID string) (*models.Reference, error) {
	var ref models.Reference
	if err := s.db.Where("ref_id = ?", refID).First(&ref).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ref, nil
}

// DeleteReference removes the reference and every link citing it.
func (s *DefaultModelStore) DeleteReference(refID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("ref_id = ?", refID).Delete(&models.Reference{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Where("ref_id = ?", refID).Delete(&models.Link{}).Error
	})
}

func (s *DefaultModelStore) ListNodes() ([]models.Node, error) {
	var nodes []models.Node
	if err := s.db.Order("node_id").Find(&nodes).Error; err != nil {
		return nil, err
	}
	return nodes, nil
}

func (s *DefaultModelStore) ListLinks() ([]models.Link, error) {
	var links []models.Link
	if err := s.db.Order("link_id").Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

func (s *DefaultModelStore) ListReferences() ([]models.Reference, error) {
	var refs []models.Reference
	if err := s.db.Order("ref_id").Find(&refs).Error; err != nil {
		return nil, err
	}
	return refs, nil
}

func (s *DefaultModelStore) Clear() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.Link{}, &models.Node{}, &models.Reference{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
