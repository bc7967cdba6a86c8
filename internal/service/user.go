package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"complaint-desk/internal/core/database"
	"complaint-desk/internal/core/validate"
	"complaint-desk/internal/domain"
	"complaint-desk/internal/repo"
	"complaint-desk/pkg/utils"
)

type UserService struct {
	store *repo.Store
	log   *zap.Logger
}

func NewUserService(store *repo.Store, l *zap.Logger) *UserService {
	return &UserService{store: store, log: l}
}

type SignupInput struct {
	FullName        string `json:"fullName" validate:"required,max=128"`
	Email           string `json:"email" validate:"required,email,max=191"`
	Phone           string `json:"phone" validate:"omitempty,max=32"`
	RoomNumber      string `json:"roomNumber" validate:"required,max=32"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

func (s *UserService) Signup(ctx context.Context, in SignupInput) (*domain.User, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.RoomNumber = strings.TrimSpace(in.RoomNumber)

	items := validate.Struct(&in)
	if in.Password != "" {
		items = append(items, utils.PasswordProblems(in.Password)...)
	}
	if in.ConfirmPassword != "" && in.Password != in.ConfirmPassword {
		items = append(items, "passwords do not match")
	}
	if len(items) > 0 {
		return nil, domain.NewValidationError(items...)
	}
	room := in.RoomNumber
	return s.create(ctx, &domain.User{
		FullName:   in.FullName,
		Email:      in.Email,
		Phone:      in.Phone,
		RoomNumber: &room,
		Role:       domain.RoleUser,
	}, in.Password)
}

type AdminInput struct {
	FullName string `json:"fullName" validate:"required,max=128"`
	Email    string `json:"email" validate:"required,email,max=191"`
	Password string `json:"password" validate:"required"`
}

// CreateAdmin 管理员没有房号，只走运维命令创建
func (s *UserService) CreateAdmin(ctx context.Context, in AdminInput) (*domain.User, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	items := validate.Struct(&in)
	if in.Password != "" {
		items = append(items, utils.PasswordProblems(in.Password)...)
	}
	if len(items) > 0 {
		return nil, domain.NewValidationError(items...)
	}
	return s.create(ctx, &domain.User{FullName: in.FullName, Email: in.Email, Role: domain.RoleAdmin}, in.Password)
}

func (s *UserService) create(ctx context.Context, u *domain.User, password string) (*domain.User, error) {
	if err := s.ensureUnique(ctx, u.Email, u.RoomNumber, ""); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u.ID = utils.NewID()
	u.PasswordHash = hash
	if err := s.store.Users.Create(ctx, u); err != nil {
		if database.IsDuplicateKey(err) {
			return nil, domain.Errorf(domain.ErrConflict, "email or room number is already registered")
		}
		return nil, err
	}
	s.log.Info("user created", zap.String("id", u.ID), zap.String("role", u.Role))
	return u, nil
}

func (s *UserService) ensureUnique(ctx context.Context, email string, room *string, exceptID string) error {
	taken, err := s.store.Users.EmailTaken(ctx, email, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return domain.Errorf(domain.ErrConflict, "email is already taken by another user")
	}
	if room == nil {
		return nil
	}
	taken, err = s.store.Users.RoomTaken(ctx, *room, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return domain.Errorf(domain.ErrConflict, "room %s already has a registered resident", *room)
	}
	return nil
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *UserService) Login(ctx context.Context, in LoginInput) (*domain.User, error) {
	if items := validate.Struct(&in); len(items) > 0 {
		return nil, domain.NewValidationError(items...)
	}
	u, err := s.store.Users.FindByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		return nil, err
	}
	if u == nil || !utils.CheckPassword(in.Password, u.PasswordHash) {
		return nil, domain.Errorf(domain.ErrUnauthorized, "invalid email or password")
	}
	return u, nil
}

type Profile struct {
	*domain.User
	Complaints Counts `json:"complaints"`
}

func (s *UserService) Profile(ctx context.Context, userID string) (*Profile, error) {
	u, err := s.mustFind(ctx, userID)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.store.Complaints.CountByStatus(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	p := &Profile{User: u, Complaints: Counts{
		Pending:    int(byStatus[domain.StatusPending]),
		InProgress: int(byStatus[domain.StatusInProgress]),
		Resolved:   int(byStatus[domain.StatusResolved]),
	}}
	p.Complaints.Total = p.Complaints.Pending + p.Complaints.InProgress + p.Complaints.Resolved
	return p, nil
}

type UpdateProfileInput struct {
	FullName   string `json:"fullName" validate:"required,max=128"`
	Email      string `json:"email" validate:"required,email,max=191"`
	Phone      string `json:"phone" validate:"omitempty,max=32"`
	RoomNumber string `json:"roomNumber" validate:"omitempty,max=32"`
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*domain.User, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.RoomNumber = strings.TrimSpace(in.RoomNumber)
	if items := validate.Struct(&in); len(items) > 0 {
		return nil, domain.NewValidationError(items...)
	}
	u, err := s.mustFind(ctx, userID)
	if err != nil {
		return nil, err
	}
	var room *string
	if in.RoomNumber != "" {
		room = &in.RoomNumber
	} else if u.Role == domain.RoleUser {
		return nil, domain.NewValidationError("roomNumber is required")
	}
	if err := s.ensureUnique(ctx, in.Email, room, u.ID); err != nil {
		return nil, err
	}
	u.FullName, u.Email, u.Phone, u.RoomNumber = in.FullName, in.Email, in.Phone, room
	if err := s.store.Users.Update(ctx, u); err != nil {
		if database.IsDuplicateKey(err) {
			return nil, domain.Errorf(domain.ErrConflict, "email or room number is already registered")
		}
		return nil, err
	}
	return u, nil
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

func (s *UserService) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) error {
	items := validate.Struct(&in)
	if in.NewPassword != "" {
		items = append(items, utils.PasswordProblems(in.NewPassword)...)
	}
	if in.ConfirmPassword != "" && in.NewPassword != in.ConfirmPassword {
		items = append(items, "passwords do not match")
	}
	if len(items) > 0 {
		return domain.NewValidationError(items...)
	}
	u, err := s.mustFind(ctx, userID)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(in.CurrentPassword, u.PasswordHash) {
		return domain.NewValidationError("current password is incorrect")
	}
	hash, err := utils.HashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return s.store.Users.Update(ctx, u)
}

type ListUsersInput struct {
	Keyword string `form:"keyword" validate:"max=64"`
	Page    int    `form:"page" validate:"min=0"`
	Size    int    `form:"size" validate:"min=0,max=100"`
}

type UserPage struct {
	Items []domain.User `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Size  int           `json:"size"`
}

func (s *UserService) List(ctx context.Context, in ListUsersInput) (*UserPage, error) {
	if items := validate.Struct(&in); len(items) > 0 {
		return nil, domain.NewValidationError(items...)
	}
	if in.Page < 1 {
		in.Page = 1
	}
	if in.Size == 0 {
		in.Size = 20
	}
	users, total, err := s.store.Users.List(ctx, in.Keyword, (in.Page-1)*in.Size, in.Size)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return &UserPage{Items: users, Total: total, Page: in.Page, Size: in.Size}, nil
}

func (s *UserService) mustFind(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.store.Users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.Errorf(domain.ErrNotFound, "user not found")
	}
	return u, nil
}
