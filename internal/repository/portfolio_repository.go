package repository

import (
	"career_coach_backend/internal/model"

	"gorm.io/gorm"
)

type PortfolioRepository struct {
	DB *gorm.DB
}

func NewPortfolioRepository(db *gorm.DB) *PortfolioRepository {
	return &PortfolioRepository{DB: db}
}

func (r *PortfolioRepository) Create(p *model.Portfolio) error {
	return r.DB.Create(p).Error
}

func (r *PortfolioRepository) FindByID(id string) (*model.Portfolio, error) {
	var p model.Portfolio
	err := r.DB.Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PortfolioRepository) FindByUser(userID uint) ([]model.Portfolio, error) {
	var ps []model.Portfolio
	err := r.DB.Where("user_id = ?", userID).Order("created_at desc").Find(&ps).Error
	return ps, err
}

func (r *PortfolioRepository) Update(p *model.Portfolio) error {
	return r.DB.Save(p).Error
}

func (r *PortfolioRepository) Delete(id string) error {
	return r.DB.Where("id = ?", id).Delete(&model.Portfolio{}).Error
}
