package repository

import (
	"career_coach_backend/internal/model"

	"gorm.io/gorm"
)

type CoverLetterRepository struct {
	DB *gorm.DB
}

func NewCoverLetterRepository(db *gorm.DB) *CoverLetterRepository {
	return &CoverLetterRepository{DB: db}
}

func (r *CoverLetterRepository) Create(cl *model.CoverLetter) error {
	return r.DB.Create(cl).Error
}

func (r *CoverLetterRepository) FindByID(id string) (*model.CoverLetter, error) {
	var cl model.CoverLetter
	err := r.DB.Where("id = ?", id).First(&cl).Error
	if err != nil {
		return nil, err
	}
	return &cl, nil
}

func (r *CoverLetterRepository) FindByUser(userID uint) ([]model.CoverLetter, error) {
	var cls []model.CoverLetter
	err := r.DB.Where("user_id = ?", userID).Order("created_at desc").Find(&cls).Error
	return cls, err
}

func (r *CoverLetterRepository) Update(cl *model.CoverLetter) error {
	return r.DB.Save(cl).Error
}

func (r *CoverLetterRepository) Delete(id string) error {
	return r.DB.Where("id = ?", id).Delete(&model.CoverLetter{}).Error
}
