package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"quotedesk/internal/model"
	"quotedesk/pkg/logger"
)

// DiskStorage keeps one JSON file per conversation (metadata), one per
// transcript and one per order under dataDir, plus a conversations.json
// index. Writes go through a temp file and rename.
type DiskStorage struct {
	dataDir   string
	mu        sync.RWMutex
	cache     map[string]*model.Conversation
	cacheSize int
}

type ConversationIndex struct {
	ID        string      `json:"id"`
	ClientID  string      `json:"client_id,omitempty"`
	Stage     model.Stage `json:"stage"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func NewDiskStorage(dataDir string, cacheSize int) *DiskStorage {
	if cacheSize <= 0 {
		cacheSize = 1
	}
	return &DiskStorage{
		dataDir:   dataDir,
		cache:     make(map[string]*model.Conversation),
		cacheSize: cacheSize,
	}
}

func (d *DiskStorage) Init() error {
	if err := d.createDirectories(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	if err := d.loadConversations(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	logger.Infof("Disk storage initialized at %s", d.dataDir)
	return nil
}

func (d *DiskStorage) createDirectories() error {
	dirs := []string{
		d.dataDir,
		filepath.Join(d.dataDir, "conversations"),
		filepath.Join(d.dataDir, "messages"),
		filepath.Join(d.dataDir, "orders"),
		filepath.Join(d.dataDir, "backup"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

// loadConversations warms the cache from the index, newest first.
func (d *DiskStorage) loadConversations() error {
	indexPath := filepath.Join(d.dataDir, "conversations.json")

	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		return writeJSONAtomic(indexPath, []*ConversationIndex{})
	}

	indexes, err := d.readIndex()
	if err != nil {
		return err
	}

	sort.Slice(indexes, func(i, j int) bool {
		return indexes[i].UpdatedAt.After(indexes[j].UpdatedAt)
	})

	for _, index := range indexes {
		if len(d.cache) >= d.cacheSize {
			break
		}

		conv, err := d.loadConversationFromFile(index.ID)
		if err != nil {
			logger.Errorf("Failed to load conversation %s: %v", index.ID, err)
			continue
		}

		d.cache[index.ID] = conv
	}

	return nil
}

func (d *DiskStorage) readIndex() ([]*ConversationIndex, error) {
	data, err := os.ReadFile(filepath.Join(d.dataDir, "conversations.json"))
	if err != nil {
		return nil, err
	}

	var indexes []*ConversationIndex
	if err := json.Unmarshal(data, &indexes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return indexes, nil
}

func (d *DiskStorage) conversationPath(conversationID string) string {
	return filepath.Join(d.dataDir, "conversations", conversationID+".json")
}

func (d *DiskStorage) messagesPath(conversationID string) string {
	return filepath.Join(d.dataDir, "messages", conversationID+".json")
}

func (d *DiskStorage) orderPath(orderID string) string {
	return filepath.Join(d.dataDir, "orders", orderID+".json")
}

func (d *DiskStorage) loadConversationFromFile(conversationID string) (*model.Conversation, error) {
	data, err := os.ReadFile(d.conversationPath(conversationID))
	if err != nil {
		return nil, err
	}

	var conv model.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	messages, err := d.loadMessagesFromFile(conversationID)
	if err != nil {
		logger.Errorf("Failed to load messages for conversation %s: %v", conversationID, err)
		messages = []model.ChatMessage{}
	}

	conv.Messages = messages
	return &conv, nil
}

func (d *DiskStorage) loadMessagesFromFile(conversationID string) ([]model.ChatMessage, error) {
	data, err := os.ReadFile(d.messagesPath(conversationID))
	if os.IsNotExist(err) {
		return []model.ChatMessage{}, nil
	}
	if err != nil {
		return nil, err
	}

	var messages []model.ChatMessage
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}

func writeJSONAtomic(path string, v any) error {
	tempPath := path + ".tmp"

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}

	return os.Rename(tempPath, path)
}

// saveConversation writes metadata and transcript separately so the index
// rebuild never has to parse transcripts.
func (d *DiskStorage) saveConversation(conv *model.Conversation) error {
	meta := *conv
	meta.Messages = nil

	if err := writeJSONAtomic(d.conversationPath(conv.ID), meta); err != nil {
		return err
	}

	messages := conv.Messages
	if messages == nil {
		messages = []model.ChatMessage{}
	}
	return writeJSONAtomic(d.messagesPath(conv.ID), messages)
}

// cached returns the cached conversation or loads it. Callers hold d.mu.
func (d *DiskStorage) cached(conversationID string) (*model.Conversation, error) {
	if conv, exists := d.cache[conversationID]; exists {
		return conv, nil
	}

	conv, err := d.loadConversationFromFile(conversationID)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	d.cache[conversationID] = conv
	d.evictCache()
	return conv, nil
}

func (d *DiskStorage) CreateConversation(conv *model.Conversation) error {
	if conv == nil || conv.ID == "" {
		return ErrInvalidData
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	stored := copyConversation(conv)
	if err := d.saveConversation(stored); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	if err := d.updateConversationIndex(); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	d.cache[conv.ID] = stored
	d.evictCache()

	return nil
}

func (d *DiskStorage) GetConversation(conversationID string) (*model.Conversation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	conv, err := d.cached(conversationID)
	if err != nil {
		return nil, err
	}
	return copyConversation(conv), nil
}

func (d *DiskStorage) UpdateConversation(conv *model.Conversation) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.cached(conv.ID); err != nil {
		return err
	}

	stored := copyConversation(conv)
	if err := d.saveConversation(stored); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	if err := d.updateConversationIndex(); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	d.cache[conv.ID] = stored

	return nil
}

func (d *DiskStorage) DeleteConversation(conversationID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	convPath := d.conversationPath(conversationID)
	if _, err := os.Stat(convPath); os.IsNotExist(err) {
		return ErrConversationNotFound
	}

	if err := os.Remove(convPath); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	if err := os.Remove(d.messagesPath(conversationID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	delete(d.cache, conversationID)

	if err := d.updateConversationIndex(); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return nil
}

// ListConversations returns metadata only (no transcripts), newest first.
func (d *DiskStorage) ListConversations() ([]*model.Conversation, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	indexes, err := d.readIndex()
	if err != nil {
		if errors.Is(err, ErrInvalidData) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	convs := make([]*model.Conversation, 0, len(indexes))
	for _, index := range indexes {
		convs = append(convs, &model.Conversation{
			ID:        index.ID,
			ClientID:  index.ClientID,
			Stage:     index.Stage,
			CreatedAt: index.CreatedAt,
			UpdatedAt: index.UpdatedAt,
		})
	}

	sort.Slice(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})

	return convs, nil
}

func (d *DiskStorage) AddMessage(conversationID string, message *model.ChatMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	conv, err := d.cached(conversationID)
	if err != nil {
		return err
	}

	conv.Messages = append(conv.Messages, *message)
	if message.Timestamp.After(conv.UpdatedAt) {
		conv.UpdatedAt = message.Timestamp
	}

	if err := d.saveConversation(conv); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	return d.updateConversationIndex()
}

func (d *DiskStorage) GetMessages(conversationID string) ([]*model.ChatMessage, error) {
	conv, err := d.GetConversation(conversationID)
	if err != nil {
		return nil, err
	}

	messages := make([]*model.ChatMessage, len(conv.Messages))
	for i := range conv.Messages {
		messages[i] = &conv.Messages[i]
	}

	return messages, nil
}

func (d *DiskStorage) SaveOrder(order *model.OrderInquiry) error {
	if order == nil || order.OrderID == "" {
		return ErrInvalidData
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := writeJSONAtomic(d.orderPath(order.OrderID), order); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return nil
}

func (d *DiskStorage) GetOrder(orderID string) (*model.OrderInquiry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	data, err := os.ReadFile(d.orderPath(orderID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	var order model.OrderInquiry
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return &order, nil
}

// updateConversationIndex rebuilds conversations.json from the metadata
// files. Callers hold d.mu.
func (d *DiskStorage) updateConversationIndex() error {
	files, err := os.ReadDir(filepath.Join(d.dataDir, "conversations"))
	if err != nil {
		return err
	}

	indexes := []*ConversationIndex{}
	for _, file := range files {
		if filepath.Ext(file.Name()) != ".json" {
			continue
		}

		conversationID := strings.TrimSuffix(file.Name(), ".json")
		data, err := os.ReadFile(d.conversationPath(conversationID))
		if err != nil {
			logger.Errorf("Failed to read conversation %s for index update: %v", conversationID, err)
			continue
		}

		var meta model.Conversation
		if err := json.Unmarshal(data, &meta); err != nil {
			logger.Errorf("Failed to parse conversation %s for index update: %v", conversationID, err)
			continue
		}

		indexes = append(indexes, &ConversationIndex{
			ID:        meta.ID,
			ClientID:  meta.ClientID,
			Stage:     meta.Stage,
			CreatedAt: meta.CreatedAt,
			UpdatedAt: meta.UpdatedAt,
		})
	}

	return writeJSONAtomic(filepath.Join(d.dataDir, "conversations.json"), indexes)
}

// evictCache drops the least recently updated entries beyond cacheSize.
func (d *DiskStorage) evictCache() {
	if len(d.cache) <= d.cacheSize {
		return
	}

	type cacheEntry struct {
		id        string
		updatedAt time.Time
	}

	entries := make([]cacheEntry, 0, len(d.cache))
	for id, conv := range d.cache {
		entries = append(entries, cacheEntry{
			id:        id,
			updatedAt: conv.UpdatedAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].updatedAt.Before(entries[j].updatedAt)
	})

	toEvict := len(d.cache) - d.cacheSize
	for i := 0; i < toEvict; i++ {
		delete(d.cache, entries[i].id)
	}
}

func (d *DiskStorage) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cache = make(map[string]*model.Conversation)
	return nil
}

// Backup copies every data file into backup/backup_<unixnano>.
func (d *DiskStorage) Backup() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	backupDir := filepath.Join(d.dataDir, "backup", fmt.Sprintf("backup_%d", time.Now().UnixNano()))

	for _, dir := range []string{"conversations", "messages", "orders"} {
		srcDir := filepath.Join(d.dataDir, dir)
		dstDir := filepath.Join(backupDir, dir)

		if err := os.MkdirAll(dstDir, 0755); err != nil {
			return fmt.Errorf("%w: %v", ErrFileOperation, err)
		}

		if err := copyDir(srcDir, dstDir); err != nil {
			return fmt.Errorf("%w: %v", ErrFileOperation, err)
		}
	}

	indexSrc := filepath.Join(d.dataDir, "conversations.json")
	indexDst := filepath.Join(backupDir, "conversations.json")
	if err := copyFile(indexSrc, indexDst); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	logger.Infof("Backup completed: %s", backupDir)
	return nil
}

func copyDir(src, dst string) error {
	files, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, file := range files {
		if file.IsDir() || strings.HasSuffix(file.Name(), ".tmp") {
			continue
		}
		if err := copyFile(filepath.Join(src, file.Name()), filepath.Join(dst, file.Name())); err != nil {
			return err
		}
	}

	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	return os.WriteFile(dst, data, 0644)
}
