package models

// Action names used for fallback messages, metrics and logs.
const (
	ActionLogin              = "login"
	ActionRegister           = "register"
	ActionFetchPosts         = "fetch_posts"
	ActionFetchPost          = "fetch_post"
	ActionCreatePost         = "create_post"
	ActionUpdatePost         = "update_post"
	ActionDeletePost         = "delete_post"
	ActionUpdateProfile      = "update_profile"
	ActionChangePassword     = "change_password"
	ActionRevalidate         = "revalidate"
	ActionFetchFavorites     = "fetch_favorites"
	ActionAddFavorite        = "add_favorite"
	ActionRemoveFavorite     = "remove_favorite"
	ActionFetchNotifications = "fetch_notifications"
	ActionMarkRead           = "mark_notification_read"
	ActionMarkAllRead        = "mark_all_notifications_read"
	ActionSearchPosts        = "search_posts"
	ActionFetchArchives      = "fetch_archives"
	ActionFetchPopularTags   = "fetch_popular_tags"
)

// DefaultLocale is used when the configured locale has no catalog.
const DefaultLocale = "en"

var fallbackMessages = map[string]map[string]string{
	"en": {
		ActionLogin:              "Login failed, please try again later",
		ActionRegister:           "Registration failed, please try again later",
		ActionFetchPosts:         "Failed to load posts",
		ActionFetchPost:          "Failed to load post",
		ActionCreatePost:         "Failed to create post",
		ActionUpdatePost:         "Failed to update post",
		ActionDeletePost:         "Failed to delete post",
		ActionUpdateProfile:      "Failed to update profile",
		ActionChangePassword:     "Failed to change password",
		ActionRevalidate:         "Failed to verify session",
		ActionFetchFavorites:     "Failed to load favorites",
		ActionAddFavorite:        "Failed to add favorite",
		ActionRemoveFavorite:     "Failed to remove favorite",
		ActionFetchNotifications: "Failed to load notifications",
		ActionMarkRead:           "Failed to mark notification as read",
		ActionMarkAllRead:        "Failed to mark all notifications as read",
		ActionSearchPosts:        "Search failed",
		ActionFetchArchives:      "Failed to load archives",
		ActionFetchPopularTags:   "Failed to load popular tags",
	},
	"zh-CN": {
		ActionLogin:              "登录失败，请稍后再试",
		ActionRegister:           "注册失败，请稍后再试",
		ActionFetchPosts:         "获取文章列表失败",
		ActionFetchPost:          "获取文章详情失败",
		ActionCreatePost:         "创建文章失败",
		ActionUpdatePost:         "更新文章失败",
		ActionDeletePost:         "删除文章失败",
		ActionUpdateProfile:      "更新用户资料失败",
		ActionChangePassword:     "修改密码失败",
		ActionRevalidate:         "验证登录状态失败",
		ActionFetchFavorites:     "获取收藏列表失败",
		ActionAddFavorite:        "添加收藏失败",
		ActionRemoveFavorite:     "取消收藏失败",
		ActionFetchNotifications: "获取通知列表失败",
		ActionMarkRead:           "标记通知失败",
		ActionMarkAllRead:        "标记所有通知失败",
		ActionSearchPosts:        "搜索文章失败",
		ActionFetchArchives:      "获取归档数据失败",
		ActionFetchPopularTags:   "获取热门标签失败",
	},
}

// FallbackMessage returns the localized generic failure message for action.
func FallbackMessage(locale, action string) string {
	catalog, ok := fallbackMessages[locale]
	if !ok {
		catalog = fallbackMessages[DefaultLocale]
	}
	if msg, ok := catalog[action]; ok {
		return msg
	}
	return fallbackMessages[DefaultLocale][action]
}

// SupportedLocale reports whether a fallback catalog exists for locale.
func SupportedLocale(locale string) bool {
	_, ok := fallbackMessages[locale]
	return ok
}
