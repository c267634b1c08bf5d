package session

import "time"

// typingIdle 无键入多久后自动清除“正在输入”
const typingIdle = 2 * time.Second

// Keystroke debounces the typing indicator: the first keystroke after
// idle publishes isTyping=true, and the flag auto-clears after two
// seconds of silence. Each transition is re-tracked on the active
// room's channel.
func (s *Session) Keystroke() {
	s.do(func() {
		if !s.typingActive {
			s.typingActive = true
			s.rooms[s.active].track()
		}
		if s.typingTimer != nil {
			s.typingTimer.Stop()
		}
		s.typingTimer = time.AfterFunc(typingIdle, func() {
			s.post(func() {
				if !s.typingActive {
					return
				}
				s.typingActive = false
				s.rooms[s.active].track()
			})
		})
	})
}
