package service

import (
	"career_coach_backend/internal/model"
	"career_coach_backend/internal/repository"
	"career_coach_backend/internal/util"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"gorm.io/gorm"
)

type UserService struct {
	UserRepo *repository.UserRepository
	Storage  *StorageService
}

func NewUserService(userRepo *repository.UserRepository, storage *StorageService) *UserService {
	return &UserService{
		UserRepo: userRepo,
		Storage:  storage,
	}
}

func (s *UserService) GetByID(id uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

type UpdateProfileRequest struct {
	Name     string `json:"name"`
	Headline string `json:"headline"`
}

func (s *UserService) UpdateProfile(userID uint, req UpdateProfileRequest) (*model.User, error) {
	user, err := s.GetByID(userID)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	user.Headline = strings.TrimSpace(req.Headline)

	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// UploadAvatar 上传头像并更新用户资料，仅接受图片
func (s *UserService) UploadAvatar(ctx context.Context, userID uint, fileHeader *multipart.FileHeader) (*model.User, error) {
	user, err := s.GetByID(userID)
	if err != nil {
		return nil, err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	mimeType, err := util.ValidateMimeType(file, []string{util.MimeImage})
	if err != nil {
		return nil, fmt.Errorf("%w: 头像仅支持图片格式", util.ErrValidation)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("avatars/%s%s", model.GenerateUUID(), filepath.Ext(fileHeader.Filename))
	url, err := s.Storage.Upload(ctx, key, file, fileHeader.Size, mimeType)
	if err != nil {
		return nil, err
	}

	user.Avatar = url
	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) List(page, limit int) ([]model.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.UserRepo.List(page, limit)
}

func (s *UserService) SetDisabled(userID uint, disabled bool) error {
	if _, err := s.GetByID(userID); err != nil {
		return err
	}
	return s.UserRepo.SetDisabled(userID, disabled)
}
