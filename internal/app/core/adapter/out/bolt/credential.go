// Package bolt 以 bbolt 檔案保存登入憑證與 session，重啟後 session 仍然有效
package bolt

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
	bolt "go.etcd.io/bbolt"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/usecase"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	credentialsBucket = []byte("credentials")
	sessionsBucket    = []byte("sessions")
)

// CredentialStore implements usecase.CredentialStore.
type CredentialStore struct {
	db *bolt.DB
}

// Open 開啟 (或建立) bbolt 檔案並建立 bucket
func Open(path string) (*CredentialStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{credentialsBucket, sessionsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &CredentialStore{db: db}, nil
}

func (s *CredentialStore) Close() error {
	return s.db.Close()
}

func (s *CredentialStore) SaveCredential(ctx context.Context, cred *domain.Credential) error {
	value, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(credentialsBucket)
		if b.Get([]byte(cred.Username)) != nil {
			return domain.ErrUsernameTaken
		}
		return b.Put([]byte(cred.Username), value)
	})
}

func (s *CredentialStore) GetCredential(ctx context.Context, username string) (*domain.Credential, error) {
	var cred domain.Credential
	err := s.db.View(func(tx *bolt.Tx) error {
		// Get 回傳的 slice 只在交易內有效，Unmarshal 會複製
		value := tx.Bucket(credentialsBucket).Get([]byte(username))
		if value == nil {
			return domain.ErrInvalidCredentials
		}
		return json.Unmarshal(value, &cred)
	})
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (s *CredentialStore) SaveSession(ctx context.Context, sess *domain.Session) error {
	value, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucket).Put([]byte(sess.Token), value)
	})
}

func (s *CredentialStore) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	var sess domain.Session
	err := s.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(sessionsBucket).Get([]byte(token))
		if value == nil {
			return domain.ErrUnauthenticated
		}
		return json.Unmarshal(value, &sess)
	})
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *CredentialStore) DeleteSession(ctx context.Context, token string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucket).Delete([]byte(token))
	})
}

// PruneSessions 刪除所有已過期的 session，回傳刪除數量
func (s *CredentialStore) PruneSessions(now time.Time) (int, error) {
	pruned := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		var expired [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var sess domain.Session
			if err := json.Unmarshal(v, &sess); err != nil {
				// 無法解析的 session 也一併清除
				expired = append(expired, append([]byte(nil), k...))
				return nil
			}
			if sess.Expired(now) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		pruned = len(expired)
		return nil
	})
	return pruned, err
}

var _ usecase.CredentialStore = (*CredentialStore)(nil)
