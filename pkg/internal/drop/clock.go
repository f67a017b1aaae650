package drop

import "time"

// Clock 提供当前时间，测试中可替换为可控时钟.
type Clock interface {
	Now() time.Time
}

// SystemClock 使用系统时间（UTC）.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
