package actor

import "github.com/google/uuid"

// newID 生成一个随机的关联标识。
// Actor 的身份始终是注册时的名字，从不生成；
// 这里的 ID 只用于需要独一无二令牌的内部场合，
// 比如同步请求的日志关联。
func newID() string {
	return uuid.NewString()
}
