// Package revalidate 负责 slug 到公开页面路径的映射以及通知前端重新生成页面
package revalidate

import "strings"

// ProjectPrefix 以此前缀开头的 slug 属于项目而非博客文章
const ProjectPrefix = "project-"

// PathForSlug 返回 slug 对应的公开页面路径。
// 前缀约定只在这里解释。
func PathForSlug(slug string) string {
	if strings.HasPrefix(slug, ProjectPrefix) {
		return "/projects/" + strings.TrimPrefix(slug, ProjectPrefix)
	}
	return "/blog/" + slug
}
