package state

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	apperrors "github.com/alexjbarnes/ghost-sync/internal/errors"
	"github.com/alexjbarnes/ghost-sync/internal/ghost"
	"github.com/alexjbarnes/ghost-sync/internal/models"
)

const (
	// stateDirPerm is the permission mode for the state directory (~/.ghost-sync/).
	stateDirPerm = fs.FileMode(0o700)

	// stateFilePerm is the permission mode for the state database file.
	stateFilePerm = fs.FileMode(0o600)

	// stateOpenTimeout is the maximum time to wait for the bolt database lock.
	stateOpenTimeout = 5 * time.Second

	blogPrefix   = "blog:"
	postsSuffix  = ":posts"
	checkPayload = "ghost-sync"
)

var (
	appBucket      = []byte("app")
	saltKey        = []byte("salt")
	checkKey       = []byte("check")
	localSecretKey = []byte("local_secret")
	currentBlogKey = []byte("current_blog")

	credentialsKey = []byte("credentials")
	tokenKey       = []byte("token")
	loggedInKey    = []byte("logged_in")
)

func blogBucket(blogURL string) []byte {
	return []byte(blogPrefix + blogURL)
}

func postsBucket(blogURL string) []byte {
	return []byte(blogPrefix + blogURL + postsSuffix)
}

// State wraps a bbolt database for all persistent application state:
// per-blog credentials, tokens and login flags, plus the mapping from
// remote posts to local files. Credentials and tokens are sealed.
type State struct {
	db     *bolt.DB
	sealer *sealer
}

// DefaultPath returns ~/.ghost-sync/state.db.
func DefaultPath() (string, error) {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}

	return filepath.Join(dir, ".ghost-sync", "state.db"), nil
}

// LoadAt opens the state database at path, creating it if it does not
// exist. passphrase protects stored secrets; when empty a random local
// secret kept in the database is used instead, leaving file permissions
// as the only protection.
func LoadAt(path, passphrase string) (*State, error) {
	if err := os.MkdirAll(filepath.Dir(path), stateDirPerm); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := bolt.Open(path, stateFilePerm, &bolt.Options{Timeout: stateOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	var salt, check []byte

	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(appBucket)
		if err != nil {
			return err
		}

		salt = cloneBytes(b.Get(saltKey))
		if salt == nil {
			if salt, err = randomBytes(saltLen); err != nil {
				return err
			}

			if err := b.Put(saltKey, salt); err != nil {
				return err
			}
		}

		if passphrase == "" {
			secret := b.Get(localSecretKey)
			if secret == nil {
				raw, err := randomBytes(32)
				if err != nil {
					return err
				}

				secret = []byte(hex.EncodeToString(raw))
				if err := b.Put(localSecretKey, secret); err != nil {
					return err
				}
			}

			passphrase = string(secret)
		}

		check = cloneBytes(b.Get(checkKey))

		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing state db: %w", err)
	}

	sl, err := newSealer(passphrase, salt)
	if err != nil {
		db.Close()
		return nil, err
	}

	if err := verifyOrWriteCheck(db, sl, check); err != nil {
		db.Close()
		return nil, err
	}

	return &State{db: db, sealer: sl}, nil
}

// Load opens the database at DefaultPath.
func Load(passphrase string) (*State, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}

	return LoadAt(path, passphrase)
}

func verifyOrWriteCheck(db *bolt.DB, sl *sealer, check []byte) error {
	if check != nil {
		got, err := sl.open(check)
		if err != nil || string(got) != checkPayload {
			return apperrors.ErrStatePassphrase
		}

		return nil
	}

	sealed, err := sl.seal([]byte(checkPayload))
	if err != nil {
		return err
	}

	return db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(appBucket).Put(checkKey, sealed)
	})
}

// Close closes the database.
func (s *State) Close() error {
	return s.db.Close()
}

// CurrentBlog returns the blog used when none is given, or "".
func (s *State) CurrentBlog() string {
	var blog string

	_ = s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(appBucket).Get(currentBlogKey); v != nil {
			blog = string(v)
		}

		return nil
	})

	return blog
}

// SetCurrentBlog records the default blog.
func (s *State) SetCurrentBlog(blogURL string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(appBucket).Put(currentBlogKey, []byte(blogURL))
	})
}

// Blogs returns every blog with stored state, sorted.
func (s *State) Blogs() ([]string, error) {
	var blogs []string

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			n := string(name)
			if strings.HasPrefix(n, blogPrefix) && !strings.HasSuffix(n, postsSuffix) {
				blogs = append(blogs, strings.TrimPrefix(n, blogPrefix))
			}

			return nil
		})
	})

	sort.Strings(blogs)

	return blogs, err
}

// SaveCredentials stores the auth request body used for the last
// successful login so a later re-login can replay it.
func (s *State) SaveCredentials(blogURL string, body ghost.AuthReqBody) error {
	return s.putSealed(blogURL, credentialsKey, body)
}

// Credentials returns the stored auth request body for blogURL.
func (s *State) Credentials(blogURL string) (*ghost.AuthReqBody, error) {
	var body ghost.AuthReqBody

	found, err := s.getSealed(blogURL, credentialsKey, &body)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, apperrors.ErrNoCredentials
	}

	return &body, nil
}

// DeleteCredentials removes stored credentials and the token for blogURL
// and marks it logged out. Post mappings are kept.
func (s *State) DeleteCredentials(blogURL string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(blogBucket(blogURL))
		if b == nil {
			return nil
		}

		if err := b.Delete(credentialsKey); err != nil {
			return err
		}

		if err := b.Delete(tokenKey); err != nil {
			return err
		}

		return b.Put(loggedInKey, []byte{0})
	})
}

// SetLoggedIn records whether blogURL has a working session.
func (s *State) SetLoggedIn(blogURL string, loggedIn bool) error {
	v := []byte{0}
	if loggedIn {
		v = []byte{1}
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(blogBucket(blogURL))
		if err != nil {
			return err
		}

		return b.Put(loggedInKey, v)
	})
}

// IsLoggedIn reports the last recorded login state for blogURL.
func (s *State) IsLoggedIn(blogURL string) bool {
	var in bool

	_ = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(blogBucket(blogURL))
		if b == nil {
			return nil
		}

		v := b.Get(loggedInKey)
		in = len(v) == 1 && v[0] == 1

		return nil
	})

	return in
}

// SaveToken stores the current token pair for blogURL.
func (s *State) SaveToken(blogURL string, token *ghost.AuthToken) error {
	return s.putSealed(blogURL, tokenKey, token)
}

// Token returns the stored token for blogURL, or nil if there is none.
func (s *State) Token(blogURL string) (*ghost.AuthToken, error) {
	var token ghost.AuthToken

	found, err := s.getSealed(blogURL, tokenKey, &token)
	if err != nil || !found {
		return nil, err
	}

	return &token, nil
}

// GhostAuthCode replays the stored authorization code. It never prompts.
func (s *State) GhostAuthCode(_ context.Context, params models.GhostAuthParams) (string, error) {
	body, err := s.Credentials(params.BlogURL)
	if err != nil {
		return "", err
	}

	if !body.IsGhostAuth() || body.AuthorizationCode == "" {
		return "", apperrors.ErrNoCredentials
	}

	return body.AuthorizationCode, nil
}

// EmailAndPassword replays the stored email and password. It never prompts.
func (s *State) EmailAndPassword(_ context.Context, params models.PasswordAuthParams) (models.EmailPassword, error) {
	body, err := s.Credentials(params.BlogURL)
	if err != nil {
		return models.EmailPassword{}, err
	}

	if body.IsGhostAuth() || body.Username == "" {
		return models.EmailPassword{}, apperrors.ErrNoCredentials
	}

	return models.EmailPassword{Email: body.Username, Password: body.Password}, nil
}

func (s *State) putSealed(blogURL string, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	sealed, err := s.sealer.seal(data)
	zero(data)

	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(blogBucket(blogURL))
		if err != nil {
			return err
		}

		return b.Put(key, sealed)
	})
}

func (s *State) getSealed(blogURL string, key []byte, v any) (bool, error) {
	var sealed []byte

	_ = s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(blogBucket(blogURL)); b != nil {
			sealed = cloneBytes(b.Get(key))
		}

		return nil
	})

	if sealed == nil {
		return false, nil
	}

	data, err := s.sealer.open(sealed)
	if err != nil {
		return false, fmt.Errorf("reading %s for %s: %w", key, blogURL, err)
	}
	defer zero(data)

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decoding %s for %s: %w", key, blogURL, err)
	}

	return true, nil
}

// PostRecord returns the local mapping for a post, or nil if not found.
func (s *State) PostRecord(blogURL, postID string) (*models.PostRecord, error) {
	var rec *models.PostRecord

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(postsBucket(blogURL))
		if b == nil {
			return nil
		}

		v := b.Get([]byte(postID))
		if v == nil {
			return nil
		}

		rec = &models.PostRecord{}

		return json.Unmarshal(v, rec)
	})

	return rec, err
}

// PostRecordByPath returns the mapping whose local file is path.
func (s *State) PostRecordByPath(blogURL, path string) (*models.PostRecord, error) {
	all, err := s.AllPostRecords(blogURL)
	if err != nil {
		return nil, err
	}

	for _, rec := range all {
		if rec.Path == path {
			return &rec, nil
		}
	}

	return nil, nil
}

// SetPostRecord persists the mapping for rec.PostID.
func (s *State) SetPostRecord(blogURL string, rec models.PostRecord) error {
	if rec.PostID == "" {
		return errors.New("post id is required")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(postsBucket(blogURL))
		if err != nil {
			return err
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}

		return b.Put([]byte(rec.PostID), data)
	})
}

// DeletePostRecord removes the mapping for a post.
func (s *State) DeletePostRecord(blogURL, postID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(postsBucket(blogURL))
		if b == nil {
			return nil
		}

		return b.Delete([]byte(postID))
	})
}

// AllPostRecords returns every mapping for a blog keyed by post id.
func (s *State) AllPostRecords(blogURL string) (map[string]models.PostRecord, error) {
	result := make(map[string]models.PostRecord)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(postsBucket(blogURL))
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var rec models.PostRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}

			result[string(k)] = rec

			return nil
		})
	})

	return result, err
}

// cloneBytes copies a value read inside a bolt transaction so it stays
// valid after the transaction ends.
func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}

	return append([]byte(nil), b...)
}
