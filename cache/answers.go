package cache

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/mbolis/surveydesk/log"
	"github.com/mbolis/surveydesk/model"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// AnswerLoader fetches a question's answers from the backing store.
type AnswerLoader interface {
	AnswersForQuestion(ctx context.Context, questionID int) ([]model.AnswerOption, error)
}

// Answers caches answer lookups in Redis, one JSON string per question:
//
//	SET answers:{questionID} [{"id":1,"text":"…"},…]
//
// and falls back to the loader on a miss. Redis failures degrade to the loader.
type Answers struct {
	client *redis.Client
	loader AnswerLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewAnswers(client *redis.Client, loader AnswerLoader, ttl time.Duration) *Answers {
	return &Answers{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Answers) AnswersForQuestion(ctx context.Context, questionID int) ([]model.AnswerOption, error) {
	if options, ok := c.cached(ctx, questionID); ok {
		return options, nil
	}

	result, err, _ := c.sf.Do(strconv.Itoa(questionID), func() (interface{}, error) {
		// another caller may have filled it while we waited
		if options, ok := c.cached(ctx, questionID); ok {
			return options, nil
		}

		options, err := c.loader.AnswersForQuestion(ctx, questionID)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(options)
		if err == nil {
			err = c.client.Set(ctx, c.key(questionID), data, c.ttlWithJitter()).Err()
		}
		if err != nil {
			log.Warnf("cache.answers.set: %s", err)
		}
		return options, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]model.AnswerOption), nil
}

// Invalidate drops cached lookups after answers were added, renamed or removed.
func (c *Answers) Invalidate(ctx context.Context, questionIDs ...int) {
	if len(questionIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(questionIDs))
	for _, id := range questionIDs {
		keys = append(keys, c.key(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Warnf("cache.answers.invalidate: %s", err)
	}
}

func (c *Answers) cached(ctx context.Context, questionID int) ([]model.AnswerOption, bool) {
	data, err := c.client.Get(ctx, c.key(questionID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warnf("cache.answers.get: %s", err)
		}
		return nil, false
	}
	options := []model.AnswerOption{}
	if err := json.Unmarshal(data, &options); err != nil {
		return nil, false
	}
	return options, true
}

func (c *Answers) key(questionID int) string {
	return "answers:" + strconv.Itoa(questionID)
}

func (c *Answers) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
