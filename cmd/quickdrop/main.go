// Package main 启动 QuickDrop 服务与命令行工具.
package main

import "github.com/yeisme/quickdrop/pkg/cmd"

//	@title			QuickDrop API
//	@version		1.0
//	@description	QuickDrop 是一个一次性文件分享服务：上传后激活的分享链接 60 秒内有效，被下载一次即销毁。

//	@license.name	MIT
//	@license.url	https://opensource.org/license/mit/

//	@contact.name	yeisme
//	@contact.email	yefun2004@gmail.com.

func main() {
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}
