package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"clauseease/pkg/domain"
)

const migrateLockID int64 = 52105210

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations under an advisory lock.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &DocumentModel{}, &ChatModel{}, &ChatMessageModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		if err := tx.Exec(`
			DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'chat_message_models'
					AND constraint_name = 'chat_message_models_chat_id_fkey'
				) THEN
					ALTER TABLE chat_message_models
					ADD CONSTRAINT chat_message_models_chat_id_fkey
					FOREIGN KEY (chat_id) REFERENCES chat_models(id) ON DELETE CASCADE;
				END IF;
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'chat_models'
					AND constraint_name = 'chat_models_document_id_fkey'
				) THEN
					ALTER TABLE chat_models
					ADD CONSTRAINT chat_models_document_id_fkey
					FOREIGN KEY (document_id) REFERENCES document_models(id) ON DELETE SET NULL;
				END IF;
			END $$;
		`).Error; err != nil {
			return fmt.Errorf("ensure chat foreign keys: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// CreateUser inserts a new credential record. Unique-index violations on
// email or phone surface as ErrDuplicate.
func (s *GormStore) CreateUser(u domain.User) error {
	model := userToModel(u)
	if err := s.db.Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// SaveUser updates an existing user record.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"phone", "first_name", "last_name", "password_hash",
			"email_verified", "phone_verified",
			"email_otp", "email_otp_expires", "phone_otp", "phone_otp_expires",
			"updated_at",
		}),
	}).Create(&model).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByEmail looks up a user by normalized email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByPhone looks up a user by E.164 phone number.
func (s *GormStore) GetUserByPhone(phone string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("phone = ?", phone).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// SetChannelOTP writes a channel's code and expiry in one UPDATE.
func (s *GormStore) SetChannelOTP(userID string, ch domain.Channel, code string, expiresAt time.Time) error {
	codeCol, expiresCol, _ := channelColumns(ch)
	return s.db.Model(&UserModel{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			codeCol:      code,
			expiresCol:   expiresAt.UTC(),
			"updated_at": time.Now().UTC(),
		}).Error
}

// ClearChannelOTP removes a channel's code and expiry without touching
// the verified flag.
func (s *GormStore) ClearChannelOTP(userID string, ch domain.Channel) error {
	codeCol, expiresCol, _ := channelColumns(ch)
	return s.db.Model(&UserModel{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			codeCol:      nil,
			expiresCol:   nil,
			"updated_at": time.Now().UTC(),
		}).Error
}

// MarkChannelVerified flips the channel's verified flag and clears its
// OTP pair in a single UPDATE.
func (s *GormStore) MarkChannelVerified(userID string, ch domain.Channel) error {
	codeCol, expiresCol, verifiedCol := channelColumns(ch)
	return s.db.Model(&UserModel{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			verifiedCol:  true,
			codeCol:      nil,
			expiresCol:   nil,
			"updated_at": time.Now().UTC(),
		}).Error
}

// ClearExpiredOTPs removes OTP pairs whose expiry has passed and returns
// the number of rows touched.
func (s *GormStore) ClearExpiredOTPs(now time.Time) (int64, error) {
	now = now.UTC()
	emailRes := s.db.Model(&UserModel{}).
		Where("email_otp IS NOT NULL AND email_otp_expires < ?", now).
		Updates(map[string]any{"email_otp": nil, "email_otp_expires": nil, "updated_at": now})
	if emailRes.Error != nil {
		return 0, emailRes.Error
	}
	phoneRes := s.db.Model(&UserModel{}).
		Where("phone_otp IS NOT NULL AND phone_otp_expires < ?", now).
		Updates(map[string]any{"phone_otp": nil, "phone_otp_expires": nil, "updated_at": now})
	if phoneRes.Error != nil {
		return emailRes.RowsAffected, phoneRes.Error
	}
	return emailRes.RowsAffected + phoneRes.RowsAffected, nil
}

// SaveDocument stores or updates a document record.
func (s *GormStore) SaveDocument(d domain.Document) error {
	model := documentToModel(d)
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"original_filename", "storage_key", "content_type",
			"size_bytes", "metadata", "excerpt",
		}),
	}).Create(&model).Error
}

// GetDocument retrieves a document by ID.
func (s *GormStore) GetDocument(id string) (domain.Document, bool, error) {
	var model DocumentModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Document{}, false, nil
		}
		return domain.Document{}, false, err
	}
	return documentFromModel(model), true, nil
}

// ListDocumentsByOwner returns a user's documents, newest first.
func (s *GormStore) ListDocumentsByOwner(ownerID string) ([]domain.Document, error) {
	var models []DocumentModel
	if err := s.db.Where("owner_id = ?", ownerID).
		Order("uploaded_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Document, 0, len(models))
	for _, m := range models {
		res = append(res, documentFromModel(m))
	}
	return res, nil
}

// DeleteDocument removes a document row; chats keep running with their
// document reference nulled by the FK.
func (s *GormStore) DeleteDocument(id string) error {
	return s.db.Delete(&DocumentModel{}, "id = ?", id).Error
}

// CreateChat creates a new chat record.
func (s *GormStore) CreateChat(c domain.Chat) error {
	model := chatToModel(c)
	return s.db.Create(&model).Error
}

// GetChat returns one chat by ID.
func (s *GormStore) GetChat(id string) (domain.Chat, bool, error) {
	var model ChatModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Chat{}, false, nil
		}
		return domain.Chat{}, false, err
	}
	return chatFromModel(model), true, nil
}

// ListChatsByOwner returns a user's chats, most recently active first.
func (s *GormStore) ListChatsByOwner(ownerID string) ([]domain.Chat, error) {
	var models []ChatModel
	if err := s.db.Where("owner_id = ?", ownerID).
		Order("updated_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Chat, 0, len(models))
	for _, m := range models {
		res = append(res, chatFromModel(m))
	}
	return res, nil
}

// TouchChat refreshes a chat's activity timestamp.
func (s *GormStore) TouchChat(id string, lastMessageAt time.Time) error {
	return s.db.Model(&ChatModel{}).
		Where("id = ?", id).
		Update("updated_at", lastMessageAt.UTC()).Error
}

// AppendMessage records a chat message.
func (s *GormStore) AppendMessage(msg domain.Message) error {
	model := messageToModel(msg)
	return s.db.Create(&model).Error
}

// ListMessages returns recent messages for a chat in chronological order.
func (s *GormStore) ListMessages(chatID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		return []domain.Message{}, nil
	}
	var models []ChatMessageModel
	if err := s.db.Where("chat_id = ?", chatID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	msgs := make([]domain.Message, 0, len(models))
	for i := len(models) - 1; i >= 0; i-- {
		msgs = append(msgs, messageFromModel(models[i]))
	}
	return msgs, nil
}

func channelColumns(ch domain.Channel) (code, expires, verified string) {
	if ch == domain.ChannelPhone {
		return "phone_otp", "phone_otp_expires", "phone_verified"
	}
	return "email_otp", "email_otp_expires", "email_verified"
}

func userToModel(u domain.User) UserModel {
	var phone *string
	if u.Phone != "" {
		value := u.Phone
		phone = &value
	}
	return UserModel{
		ID:              u.ID,
		Email:           u.Email,
		Phone:           phone,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		PasswordHash:    u.PasswordHash,
		EmailVerified:   u.EmailVerified,
		PhoneVerified:   u.PhoneVerified,
		EmailOTP:        u.EmailOTP,
		EmailOTPExpires: u.EmailOTPExpires,
		PhoneOTP:        u.PhoneOTP,
		PhoneOTPExpires: u.PhoneOTPExpires,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	phone := ""
	if m.Phone != nil {
		phone = *m.Phone
	}
	return domain.User{
		ID:              m.ID,
		Email:           m.Email,
		Phone:           phone,
		FirstName:       m.FirstName,
		LastName:        m.LastName,
		PasswordHash:    m.PasswordHash,
		EmailVerified:   m.EmailVerified,
		PhoneVerified:   m.PhoneVerified,
		EmailOTP:        m.EmailOTP,
		EmailOTPExpires: m.EmailOTPExpires,
		PhoneOTP:        m.PhoneOTP,
		PhoneOTPExpires: m.PhoneOTPExpires,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func documentToModel(d domain.Document) DocumentModel {
	meta, _ := json.Marshal(d.Metadata)
	return DocumentModel{
		ID:               d.ID,
		OwnerID:          d.OwnerID,
		OriginalFilename: d.OriginalFilename,
		StorageKey:       d.StorageKey,
		ContentType:      d.ContentType,
		SizeBytes:        d.SizeBytes,
		Metadata:         meta,
		Excerpt:          d.Excerpt,
		UploadedAt:       d.UploadedAt,
	}
}

func documentFromModel(m DocumentModel) domain.Document {
	var meta map[string]string
	if len(m.Metadata) > 0 {
		_ = json.Unmarshal(m.Metadata, &meta)
	}
	return domain.Document{
		ID:               m.ID,
		OwnerID:          m.OwnerID,
		OriginalFilename: m.OriginalFilename,
		StorageKey:       m.StorageKey,
		ContentType:      m.ContentType,
		SizeBytes:        m.SizeBytes,
		Metadata:         meta,
		Excerpt:          m.Excerpt,
		UploadedAt:       m.UploadedAt,
	}
}

func chatToModel(c domain.Chat) ChatModel {
	var documentID *string
	if c.DocumentID != "" {
		value := c.DocumentID
		documentID = &value
	}
	return ChatModel{
		ID:         c.ID,
		OwnerID:    c.OwnerID,
		DocumentID: documentID,
		Title:      c.Title,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func chatFromModel(m ChatModel) domain.Chat {
	documentID := ""
	if m.DocumentID != nil {
		documentID = *m.DocumentID
	}
	return domain.Chat{
		ID:         m.ID,
		OwnerID:    m.OwnerID,
		DocumentID: documentID,
		Title:      m.Title,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func messageToModel(msg domain.Message) ChatMessageModel {
	return ChatMessageModel{
		ID:        msg.ID,
		ChatID:    msg.ChatID,
		Role:      msg.Role,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
}

func messageFromModel(m ChatMessageModel) domain.Message {
	return domain.Message{
		ID:        m.ID,
		ChatID:    m.ChatID,
		Role:      m.Role,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}
