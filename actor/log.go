package actor

import "github.com/sirupsen/logrus"

// defaultLogger 是包级结构化日志器。
// 处理器 panic 恢复、拒绝回执、本地无处理器丢弃、
// 接收端开始监听的事件都经过它输出。
var defaultLogger = logrus.StandardLogger()

// SetLogger 覆盖运行时诊断使用的日志器。
// 想要安静输出的测试可以传入一个写到 io.Discard 的 logrus.New()。
func SetLogger(l *logrus.Logger) {
	if l == nil {
		return
	}
	defaultLogger = l
}
