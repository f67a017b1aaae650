package queue

// 主题命名：quickdrop.<域>.<动作>.
const (
	// QuickDrop 生命周期.
	TopicDropCreated   = "quickdrop.drop.created"   // 创建 pending 记录
	TopicDropActivated = "quickdrop.drop.activated" // 上传完成并激活
	TopicDropConsumed  = "quickdrop.drop.consumed"  // 被唯一一次下载
	TopicDropExpired   = "quickdrop.drop.expired"   // 被观察到已过期
	TopicDropReaped    = "quickdrop.drop.reaped"    // 被后台回收删除

	// 目录文件.
	TopicFileAutoDeleted = "quickdrop.file.auto_deleted" // 自动删除文件被下载并删除
)

// AllTopics 返回全部主题，审计订阅使用.
func AllTopics() []string {
	return []string{
		TopicDropCreated,
		TopicDropActivated,
		TopicDropConsumed,
		TopicDropExpired,
		TopicDropReaped,
		TopicFileAutoDeleted,
	}
}
