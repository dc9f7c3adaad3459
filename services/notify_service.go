package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"studyloop/config"
	"studyloop/models"
)

// NotifyService 会话事件通知服务
// 事件在状态落库之后发布，发布失败只记日志，不影响已提交的状态
type NotifyService struct {
	producer      sarama.SyncProducer
	asyncProducer sarama.AsyncProducer
	topics        map[string]bool
	topicsMutex   sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
	metrics       *NotifyMetrics
}

// NotifyMetrics 收集通知相关指标
type NotifyMetrics struct {
	eventsSent int64
	errors     int64
	mu         sync.RWMutex
}

// SessionEvent 发往Kafka的会话事件
type SessionEvent struct {
	Event     string    `json:"event"`
	SessionID uint      `json:"session_id"`
	GroupID   uint      `json:"group_id"`
	CreatorID uint      `json:"creator_id"`
	Status    string    `json:"status"`
	Title     string    `json:"title"`
	At        time.Time `json:"at"`
}

// NewNotifyService 创建通知服务
func NewNotifyService() (*NotifyService, error) {
	// 同步生产者配置
	producerConfig := sarama.NewConfig()
	producerConfig.Producer.RequiredAcks = sarama.WaitForAll
	producerConfig.Producer.Retry.Max = 5
	producerConfig.Producer.Return.Successes = true
	producerConfig.Producer.Compression = sarama.CompressionSnappy
	producerConfig.Producer.Flush.Frequency = 500 * time.Millisecond
	producerConfig.Producer.Flush.MaxMessages = 10
	producerConfig.Version = sarama.V2_5_0_0

	producer, err := sarama.NewSyncProducer(config.AppConfig.KafkaBootstrapServers, producerConfig)
	if err != nil {
		return nil, fmt.Errorf("创建Kafka同步生产者失败: %v", err)
	}

	// 异步生产者配置
	asyncConfig := sarama.NewConfig()
	asyncConfig.Producer.RequiredAcks = sarama.WaitForLocal
	asyncConfig.Producer.Compression = sarama.CompressionSnappy
	asyncConfig.Producer.Flush.Frequency = 500 * time.Millisecond
	asyncConfig.Producer.Flush.MaxMessages = 10
	asyncConfig.Producer.Return.Successes = true
	asyncConfig.Producer.Return.Errors = true
	asyncConfig.Version = sarama.V2_5_0_0

	asyncProducer, err := sarama.NewAsyncProducer(config.AppConfig.KafkaBootstrapServers, asyncConfig)
	if err != nil {
		producer.Close()
		return nil, fmt.Errorf("创建Kafka异步生产者失败: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	service := &NotifyService{
		producer:      producer,
		asyncProducer: asyncProducer,
		topics:        make(map[string]bool),
		ctx:           ctx,
		cancel:        cancel,
		metrics:       &NotifyMetrics{},
	}

	// 处理异步生产者的成功和错误回调
	go service.handleAsyncProducerResponses()

	return service, nil
}

// 处理异步生产者的响应
func (s *NotifyService) handleAsyncProducerResponses() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case success := <-s.asyncProducer.Successes():
			if success != nil {
				s.metrics.mu.Lock()
				s.metrics.eventsSent++
				s.metrics.mu.Unlock()
			}
		case err := <-s.asyncProducer.Errors():
			if err != nil {
				s.metrics.mu.Lock()
				s.metrics.errors++
				s.metrics.mu.Unlock()
				log.Printf("发布事件失败: %v", err)
			}
		}
	}
}

// PublishSessionEvent 异步发布会话事件
func (s *NotifyService) PublishSessionEvent(event string, session *models.QuizSession) {
	payload := SessionEvent{
		Event:     event,
		SessionID: session.ID,
		GroupID:   session.GroupID,
		CreatorID: session.CreatorID,
		Status:    session.Status,
		Title:     session.Title,
		At:        time.Now(),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("序列化会话事件失败: %v", err)
		return
	}

	topic := config.AppConfig.KafkaTopicPrefix + "sessions"
	key := fmt.Sprintf("group-%d", session.GroupID)

	go func() {
		if err := s.ensureTopicExists(topic); err != nil {
			log.Printf("确保主题存在失败: %v", err)
			return
		}
		s.asyncProducer.Input() <- &sarama.ProducerMessage{
			Topic:     topic,
			Key:       sarama.StringEncoder(key),
			Value:     sarama.ByteEncoder(data),
			Timestamp: time.Now(),
		}
	}()
}

// PublishMemberEvent 同步发布成员角色变更事件
func (s *NotifyService) PublishMemberEvent(event string, groupID, userID uint, role string) error {
	payload := map[string]interface{}{
		"event":    event,
		"group_id": groupID,
		"user_id":  userID,
		"role":     role,
		"at":       time.Now(),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	topic := config.AppConfig.KafkaTopicPrefix + "members"
	if err := s.ensureTopicExists(topic); err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(fmt.Sprintf("group-%d", groupID)),
		Value:     sarama.ByteEncoder(data),
		Timestamp: time.Now(),
	}

	_, _, err = s.producer.SendMessage(msg)
	if err != nil {
		s.metrics.mu.Lock()
		s.metrics.errors++
		s.metrics.mu.Unlock()
		return fmt.Errorf("发布成员事件失败: %v", err)
	}

	s.metrics.mu.Lock()
	s.metrics.eventsSent++
	s.metrics.mu.Unlock()
	return nil
}

// ensureTopicExists 确保主题存在
func (s *NotifyService) ensureTopicExists(topic string) error {
	s.topicsMutex.RLock()
	exists := s.topics[topic]
	s.topicsMutex.RUnlock()

	if exists {
		return nil
	}

	adminConfig := sarama.NewConfig()
	adminConfig.Version = sarama.V2_5_0_0

	admin, err := sarama.NewClusterAdmin(config.AppConfig.KafkaBootstrapServers, adminConfig)
	if err != nil {
		return fmt.Errorf("创建Kafka管理客户端失败: %v", err)
	}
	defer admin.Close()

	topics, err := admin.ListTopics()
	if err != nil {
		return fmt.Errorf("获取主题列表失败: %v", err)
	}

	if _, exists := topics[topic]; !exists {
		topicDetail := &sarama.TopicDetail{
			NumPartitions:     int32(config.AppConfig.KafkaPartitions),
			ReplicationFactor: int16(config.AppConfig.KafkaReplicationFactor),
			ConfigEntries: map[string]*string{
				"retention.ms":   strPtr("86400000"), // 1天的消息保留时间
				"cleanup.policy": strPtr("delete"),
			},
		}

		if err := admin.CreateTopic(topic, topicDetail, false); err != nil {
			return fmt.Errorf("创建主题失败: %v", err)
		}

		log.Printf("已创建Kafka主题: %s", topic)
	}

	s.topicsMutex.Lock()
	s.topics[topic] = true
	s.topicsMutex.Unlock()

	return nil
}

// GetMetrics 获取通知指标
func (s *NotifyService) GetMetrics() map[string]int64 {
	s.metrics.mu.RLock()
	defer s.metrics.mu.RUnlock()

	return map[string]int64{
		"events_sent": s.metrics.eventsSent,
		"errors":      s.metrics.errors,
	}
}

// Close 关闭通知服务
func (s *NotifyService) Close() error {
	s.cancel()

	var errs []error

	if err := s.producer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("关闭Kafka同步生产者失败: %v", err))
	}

	if err := s.asyncProducer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("关闭Kafka异步生产者失败: %v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("关闭通知服务时发生错误: %v", errs)
	}

	return nil
}

func strPtr(s string) *string {
	return &s
}
