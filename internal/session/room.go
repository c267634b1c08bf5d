package session

import (
	"context"

	jww "github.com/spf13/jwalterweatherman"

	"github.com/pelusa-v/geochat/internal/chat"
	"github.com/pelusa-v/geochat/internal/geo"
	"github.com/pelusa-v/geochat/internal/store"
)

// roomChannel is one scale's room subscription: the channel handle,
// the room's view state and the in-flight guards. All fields are owned
// by the session loop; async fetch results come back through post and
// are checked against gen before they touch state (a switch away from
// the room while a fetch is outstanding bumps gen, so stale responses
// are dropped instead of corrupting the new room).
type roomChannel struct {
	scale geo.Scale
	sess  *Session
	state *RoomState

	ch  Channel
	gen int

	loadingOlder bool
	loadingNewer bool
	lastRead     int64
}

func newRoomChannel(s *Session, scale geo.Scale) *roomChannel {
	return &roomChannel{scale: scale, sess: s, state: newRoomState("")}
}

// switchTo tears down the current subscription and joins a room from
// scratch: cache cleared, cursors rewound, fresh initial page. Also
// the resubscribe path (Resume, climbing exit) with the same room id.
func (rc *roomChannel) switchTo(room string) {
	rc.gen++
	gen := rc.gen
	if rc.ch != nil {
		_ = rc.ch.Close()
		rc.ch = nil
	}
	rc.state.resetForRoom(room)
	rc.loadingOlder = false
	rc.loadingNewer = false

	ch, err := rc.sess.transport.Subscribe(room, func(ev chat.Envelope) {
		rc.sess.post(func() {
			if rc.gen != gen {
				return
			}
			rc.handleEvent(ev)
		})
	})
	if err != nil {
		// 订阅失败不致命：Resume 时重试
		jww.ERROR.Printf("subscribe %s: %v", room, err)
		return
	}
	rc.ch = ch

	go func() {
		page, err := rc.sess.store.PageBefore(context.Background(), room, 0, PageSize)
		rc.sess.post(func() {
			// 期间进入爬楼的话，初始页作废
			if rc.gen != gen || rc.state.Climbing {
				return
			}
			if err != nil {
				jww.ERROR.Printf("initial page for %s: %v", room, err)
				// 降级为空窗口，但频道已订阅，照常转 LIVE
				rc.state.State = StateLive
				rc.track()
				return
			}
			// 查询是新→旧，窗口要旧→新
			for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
				page[i], page[j] = page[j], page[i]
			}
			// 初始页抓取期间到达的广播消息已在窗口里，合并而不是覆盖
			live := rc.state.Messages
			rc.state.Messages = page
			for _, m := range live {
				rc.state.ingest(m)
			}
			rc.state.HasOlder = len(page) == PageSize
			rc.state.State = StateLive
			rc.track()
		})
	}()
}

func (rc *roomChannel) handleEvent(ev chat.Envelope) {
	switch ev.Kind {
	case chat.EventNewMessage:
		if ev.Message == nil {
			return
		}
		// 爬楼中新消息不并入窗口：前进游标只能由分页推进，
		// 新消息等退出重载后再看
		if rc.state.Climbing {
			if rc.scale != rc.sess.active {
				rc.state.noteUnread(*ev.Message, rc.sess.identity.UserName)
			}
			return
		}
		// 乐观本地回显靠 id 去重：自己广播回来的消息不会出现两次
		if !rc.state.ingest(*ev.Message) {
			return
		}
		if rc.scale != rc.sess.active {
			rc.state.noteUnread(*ev.Message, rc.sess.identity.UserName)
		}
	case chat.EventRecall:
		if ev.Recall == nil {
			return
		}
		rc.state.applyRecall(ev.Recall.MessageID)
	case chat.EventPresenceSync:
		rc.state.applyPresence(ev.Presence)
	}
}

// loadOlder backfills one page below the oldest held message. A second
// trigger while one is outstanding is a no-op.
func (rc *roomChannel) loadOlder() {
	if rc.state.State != StateLive || rc.state.Climbing ||
		rc.loadingOlder || !rc.state.HasOlder {
		return
	}
	rc.loadingOlder = true
	rc.state.State = StateLoadingOlder
	gen := rc.gen
	room := rc.state.RoomID
	cursor := rc.state.oldestTimestamp()

	go func() {
		page, err := rc.sess.store.PageBefore(context.Background(), room, cursor, PageSize)
		rc.sess.post(func() {
			// 回填落地前切了房间或进了爬楼：这页作废
			if rc.gen != gen || rc.state.Climbing {
				return
			}
			rc.loadingOlder = false
			rc.state.State = StateLive
			if err != nil {
				// hasOlder 不动，滚动可重试
				jww.WARN.Printf("load older for %s: %v", room, err)
				return
			}
			rc.state.prependOlder(page)
			if len(page) < PageSize {
				rc.state.HasOlder = false
			}
		})
	}()
}

// enterClimbing discards the live tail view and starts reading the
// room front-to-back from its oldest message. Backward fetches still in
// flight are dropped by the climbing guard on their completions.
func (rc *roomChannel) enterClimbing() {
	if rc.state.Climbing {
		return
	}
	rc.state.Climbing = true
	rc.state.State = StateLive
	rc.state.Messages = nil
	rc.state.HasOlder = false
	rc.state.HasNewer = false
	rc.loadingOlder = false
	rc.loadingNewer = false
	rc.fetchNewer()
}

func (rc *roomChannel) loadNewer() {
	if !rc.state.Climbing || rc.loadingNewer || !rc.state.HasNewer {
		return
	}
	rc.fetchNewer()
}

// fetchNewer advances the forward cursor by one page. The cursor comes
// from paged rows only; live broadcasts never move it. hasNewer always
// reflects the last page result.
func (rc *roomChannel) fetchNewer() {
	rc.loadingNewer = true
	gen := rc.gen
	room := rc.state.RoomID
	cursor := rc.state.newestTimestamp()

	go func() {
		page, err := rc.sess.store.PageAfter(context.Background(), room, cursor, PageSize)
		rc.sess.post(func() {
			if rc.gen != gen || !rc.state.Climbing {
				return
			}
			rc.loadingNewer = false
			if err != nil {
				jww.WARN.Printf("load newer for %s: %v", room, err)
				return
			}
			rc.state.appendNewer(page)
			rc.state.HasNewer = len(page) == PageSize
		})
	}()
}

// exitClimbing is a full reload: no attempt to merge the forward
// cursor back into the live view.
func (rc *roomChannel) exitClimbing() {
	if !rc.state.Climbing {
		return
	}
	rc.switchTo(rc.state.RoomID)
}

// send appends the message locally, broadcasts it, then persists in
// the background. Peer delivery is never blocked on storage: a failed
// insert keeps the optimistic message and is logged, unless it is a
// schema mismatch, which is surfaced to the caller's handler.
func (rc *roomChannel) send(m chat.Message) {
	rc.state.ingest(m)
	if rc.ch != nil {
		msg := m
		if err := rc.ch.Send(chat.Envelope{Kind: chat.EventNewMessage, Message: &msg}); err != nil {
			jww.WARN.Printf("broadcast to %s: %v", rc.state.RoomID, err)
		}
	}
	room := rc.state.RoomID
	go func() {
		if err := rc.sess.store.Insert(context.Background(), room, m); err != nil {
			if store.IsSchemaMismatch(err) && rc.sess.onSchemaMismatch != nil {
				rc.sess.onSchemaMismatch(err)
				return
			}
			jww.WARN.Printf("persist message %s to %s: %v", m.ID, room, err)
		}
	}()
}

func (rc *roomChannel) recall(id string) {
	rc.state.applyRecall(id)
	if rc.ch != nil {
		if err := rc.ch.Send(chat.Envelope{
			Kind:   chat.EventRecall,
			Recall: &chat.RecallPayload{MessageID: id},
		}); err != nil {
			jww.WARN.Printf("broadcast recall to %s: %v", rc.state.RoomID, err)
		}
	}
	room := rc.state.RoomID
	go func() {
		if err := rc.sess.store.MarkRecalled(context.Background(), room, id); err != nil {
			jww.WARN.Printf("persist recall %s in %s: %v", id, room, err)
		}
	}()
}

// deleteMessage hard-removes the row. Deliberately not broadcast;
// other clients converge on their next page fetch.
func (rc *roomChannel) deleteMessage(id string) {
	rc.state.drop(id)
	room := rc.state.RoomID
	go func() {
		if err := rc.sess.store.Delete(context.Background(), room, id); err != nil {
			jww.WARN.Printf("delete %s in %s: %v", id, room, err)
		}
	}()
}

// track publishes the local presence record. Marker coordinates are
// micro-fuzzed fresh on every tick and never feed room computation.
func (rc *roomChannel) track() {
	if rc.ch == nil || rc.state.State == StateInitializing {
		return
	}
	marker := rc.sess.resolver.MarkerCoord()
	p := chat.Presence{
		UserID:            rc.sess.identity.UserID,
		UserName:          rc.sess.identity.UserName,
		AvatarSeed:        rc.sess.identity.AvatarSeed,
		IsGM:              rc.sess.identity.IsGM,
		Lat:               marker.Lat,
		Lng:               marker.Lng,
		OnlineAt:          rc.sess.now(),
		IsTyping:          rc.sess.typingActive && rc.scale == rc.sess.active,
		LastReadTimestamp: rc.lastRead,
	}
	if err := rc.ch.Track(p); err != nil {
		jww.WARN.Printf("track presence in %s: %v", rc.state.RoomID, err)
	}
}

func (rc *roomChannel) teardown() {
	rc.gen++
	if rc.ch != nil {
		_ = rc.ch.Close()
		rc.ch = nil
	}
}
