package notification

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jengzang/location-tracker/internal/telemetry"
)

// ErrClosed is returned by operations on a closed Center
var ErrClosed = errors.New("notification center closed")

// Settings decides how delivered notifications are presented
type Settings struct {
	ShowAlert bool `json:"shouldShowAlert" yaml:"showAlert"`
	PlaySound bool `json:"shouldPlaySound" yaml:"playSound"`
	SetBadge  bool `json:"shouldSetBadge" yaml:"setBadge"`
}

// DefaultSettings shows an alert, plays a sound and sets the badge
func DefaultSettings() Settings {
	return Settings{ShowAlert: true, PlaySound: true, SetBadge: true}
}

// Content is what a notification says
type Content struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Color string            `json:"color,omitempty"`
	Data  map[string]string `json:"data,omitempty"`
}

// Notification is a delivered notification
type Notification struct {
	ID           string    `json:"id"`
	Content      Content   `json:"content"`
	Presentation Settings  `json:"presentation"`
	DeliveredAt  time.Time `json:"deliveredAt"`
}

// Center owns notification settings, device registrations and pending deliveries.
// Create one per process with NewCenter and release it with Close.
type Center struct {
	settings Settings

	mu        sync.Mutex
	closed    bool
	tokens    map[string]string // device ID -> push token
	pending   map[string]*time.Timer
	nextSub   int
	listeners map[int]func(Notification)
}

// NewCenter creates a notification center
func NewCenter(settings Settings) *Center {
	return &Center{
		settings:  settings,
		tokens:    make(map[string]string),
		pending:   make(map[string]*time.Timer),
		listeners: make(map[int]func(Notification)),
	}
}

// Settings returns the presentation settings
func (c *Center) Settings() Settings {
	return c.settings
}

// Register issues a push token for deviceID; repeated calls return the same token
func (c *Center) Register(deviceID string) (string, error) {
	if deviceID == "" {
		return "", errors.New("device ID is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", ErrClosed
	}
	if token, ok := c.tokens[deviceID]; ok {
		return token, nil
	}
	token := uuid.NewString()
	c.tokens[deviceID] = token
	log.Printf("Registered device %s for notifications", deviceID)
	return token, nil
}

// Subscribe registers fn for every delivered notification; the returned func removes it
func (c *Center) Subscribe(fn func(Notification)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// Post delivers content immediately and returns the notification ID
func (c *Center) Post(content Content) (string, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrClosed
	}
	c.mu.Unlock()

	id := uuid.NewString()
	c.deliver(id, content)
	return id, nil
}

// Schedule delivers content after delay and returns the notification ID
func (c *Center) Schedule(content Content, delay time.Duration) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", ErrClosed
	}

	id := uuid.NewString()
	c.pending[id] = time.AfterFunc(delay, func() {
		c.mu.Lock()
		_, ok := c.pending[id]
		delete(c.pending, id)
		c.mu.Unlock()
		if ok {
			c.deliver(id, content)
		}
	})
	return id, nil
}

// Cancel drops a scheduled notification; it reports false if it already fired or never existed
func (c *Center) Cancel(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer, ok := c.pending[id]
	if !ok {
		return false
	}
	timer.Stop()
	delete(c.pending, id)
	return true
}

// Pending returns the number of scheduled, undelivered notifications
func (c *Center) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close cancels scheduled notifications and drops all subscribers
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, timer := range c.pending {
		timer.Stop()
		delete(c.pending, id)
	}
	c.listeners = make(map[int]func(Notification))
}

func (c *Center) deliver(id string, content Content) {
	n := Notification{
		ID:           id,
		Content:      content,
		Presentation: c.settings,
		DeliveredAt:  time.Now(),
	}

	c.mu.Lock()
	fns := make([]func(Notification), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	telemetry.NotificationsDelivered.Inc()
	for _, fn := range fns {
		fn(n)
	}
}

// TestContent is the local test notification offered to app users
func TestContent() Content {
	return Content{
		Title: "Test Notification!",
		Body:  "This is a local notification from Expo.",
		Data:  map[string]string{"url": "https://expo.dev"},
	}
}
