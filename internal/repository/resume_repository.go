package repository

import (
	"career_coach_backend/internal/model"

	"gorm.io/gorm"
)

type ResumeRepository struct {
	DB *gorm.DB
}

func NewResumeRepository(db *gorm.DB) *ResumeRepository {
	return &ResumeRepository{DB: db}
}

func (r *ResumeRepository) Create(resume *model.Resume) error {
	return r.DB.Create(resume).Error
}

func (r *ResumeRepository) FindByID(id string) (*model.Resume, error) {
	var resume model.Resume
	err := r.DB.Where("id = ?", id).First(&resume).Error
	if err != nil {
		return nil, err
	}
	return &resume, nil
}

func (r *ResumeRepository) FindByUser(userID uint) ([]model.Resume, error) {
	var resumes []model.Resume
	err := r.DB.Where("user_id = ?", userID).Order("created_at desc").Find(&resumes).Error
	return resumes, err
}

func (r *ResumeRepository) Update(resume *model.Resume) error {
	return r.DB.Save(resume).Error
}

func (r *ResumeRepository) Delete(id string) error {
	return r.DB.Where("id = ?", id).Delete(&model.Resume{}).Error
}
