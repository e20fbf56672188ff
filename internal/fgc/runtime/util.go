package runtime

import "time"

// spinWait stands in for safepoint.rs's std::hint::spin_loop: a
// goroutine has no CPU-level pause instruction to hint at, so this
// yields briefly instead of spinning untamed across every core.
func spinWait() {
	time.Sleep(time.Microsecond)
}

// sleepPoll stands in for safepoint.rs's
// std::thread::sleep(Duration::from_millis(1)) polling interval.
func sleepPoll() {
	time.Sleep(time.Millisecond)
}
