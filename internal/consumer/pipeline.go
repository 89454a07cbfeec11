package consumer

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/wououoo/weddingalba-chat/internal/domain"
	"github.com/wououoo/weddingalba-chat/internal/fanout"
	"github.com/wououoo/weddingalba-chat/internal/repository"
	"github.com/wououoo/weddingalba-chat/internal/store"
	"github.com/wououoo/weddingalba-chat/pkg/log"
)

type record struct {
	partition int32
	key       []byte
	value     []byte
}

// Pipeline is the processing stage between the log and the stores. Records
// are spread over workers by partition, so each partition stays sequential
// and per-room order is preserved end to end.
type Pipeline struct {
	messages     repository.MessageRepository
	rooms        repository.RoomRepository
	participants repository.ParticipantRepository
	unread       store.UnreadStore
	fanout       fanout.Fanout

	queues []chan record
	wg     sync.WaitGroup
}

func NewPipeline(
	messages repository.MessageRepository,
	rooms repository.RoomRepository,
	participants repository.ParticipantRepository,
	unread store.UnreadStore,
	fan fanout.Fanout,
	workers int,
) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	queues := make([]chan record, workers)
	for i := range queues {
		queues[i] = make(chan record, 256)
	}
	return &Pipeline{
		messages:     messages,
		rooms:        rooms,
		participants: participants,
		unread:       unread,
		fanout:       fan,
		queues:       queues,
	}
}

// Start launches the worker goroutines.
func (p *Pipeline) Start(ctx context.Context) {
	for i := range p.queues {
		p.wg.Add(1)
		go p.worker(ctx, p.queues[i])
	}
}

// Stop drains the queues and waits for in-flight records to finish.
func (p *Pipeline) Stop() {
	for _, q := range p.queues {
		close(q)
	}
	p.wg.Wait()
}

// Handle routes one log record to its partition's worker. Same partition
// always lands on the same worker.
func (p *Pipeline) Handle(ctx context.Context, partition int32, key, value []byte) error {
	idx := int(partition) % len(p.queues)
	select {
	case p.queues[idx] <- record{partition: partition, key: key, value: value}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) worker(ctx context.Context, queue <-chan record) {
	defer p.wg.Done()
	for rec := range queue {
		p.process(ctx, rec)
	}
}

func (p *Pipeline) process(ctx context.Context, rec record) {
	var msg domain.Message
	if err := json.Unmarshal(rec.value, &msg); err != nil {
		l := log.L()
		l.Error().Err(err).
			Int32(log.FieldPartition, rec.partition).
			Msg("dropping undecodable record")
		return
	}

	switch msg.Type {
	case domain.MessageTyping:
		p.deliverTyping(ctx, &msg, true)
	case domain.MessageStopTyping:
		p.deliverTyping(ctx, &msg, false)
	case domain.MessageChat, domain.MessageJoin, domain.MessageLeave,
		domain.MessageSystem, domain.MessageMention, domain.MessageFile, domain.MessageImage:
		p.persistAndDeliver(ctx, &msg)
	default:
		l := log.L()
		l.Warn().
			Str(log.FieldMessageID, msg.ID).
			Str(log.FieldMsgType, string(msg.Type)).
			Msg("dropping record with unknown message type")
	}
}

func (p *Pipeline) deliverTyping(ctx context.Context, msg *domain.Message, isTyping bool) {
	if err := p.fanout.DeliverTyping(ctx, msg.RoomID, msg.SenderID, msg.SenderName, isTyping); err != nil {
		l := log.L()
		l.Error().Err(err).Str(log.FieldRoomID, msg.RoomID).Msg("typing fanout failed")
	}
}

// persistAndDeliver is the durable path. The insert is the duplicate gate:
// counters move only when a new row went in, so a redelivered record cannot
// double-count. Persistence failures do not block fanout; the message stays
// live and clients reconcile through history once the store recovers.
func (p *Pipeline) persistAndDeliver(ctx context.Context, msg *domain.Message) {
	inserted, err := p.messages.SaveMessage(ctx, msg)
	if err != nil {
		l := log.L()
		l.Error().Err(err).
			Str(log.FieldMessageID, msg.ID).
			Str(log.FieldRoomID, msg.RoomID).
			Msg("message persist failed")
	} else if inserted {
		p.afterInsert(ctx, msg)
	}

	if err := p.fanout.DeliverMessage(ctx, msg); err != nil {
		l := log.L()
		l.Error().Err(err).
			Str(log.FieldMessageID, msg.ID).
			Str(log.FieldRoomID, msg.RoomID).
			Msg("message fanout failed")
	}
}

func (p *Pipeline) afterInsert(ctx context.Context, msg *domain.Message) {
	if err := p.rooms.TouchActivity(ctx, msg.RoomID, msg.Timestamp); err != nil {
		l := log.L()
		l.Warn().Err(err).Str(log.FieldRoomID, msg.RoomID).Msg("room activity bump failed")
	}

	active, err := p.participants.ListActive(ctx, msg.RoomID)
	if err != nil {
		l := log.L()
		l.Error().Err(err).Str(log.FieldRoomID, msg.RoomID).Msg("listing participants failed, skipping unread counters")
		return
	}

	recipients := make([]int64, 0, len(active))
	for _, part := range active {
		if part.UserID != msg.SenderID {
			recipients = append(recipients, part.UserID)
		}
	}
	if len(recipients) == 0 {
		return
	}

	updates, err := p.unread.Increment(ctx, msg.RoomID, recipients)
	if err != nil {
		l := log.L()
		l.Error().Err(err).Str(log.FieldRoomID, msg.RoomID).Msg("unread increment failed")
		return
	}
	if err := p.fanout.NotifyUnread(ctx, updates); err != nil {
		l := log.L()
		l.Error().Err(err).Str(log.FieldRoomID, msg.RoomID).Msg("unread fanout failed")
	}
}
