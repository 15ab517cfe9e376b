package tables

import "github.com/JonMunkholm/csv2oltp/internal/core"

func init() {
	registerVideoPlatform()
}

// registerVideoPlatform registers the video platform tables in load order.
// Referenced tables come before the tables holding their foreign keys.
func registerVideoPlatform() {
	for _, desc := range []core.TableDescriptor{
		{Name: "users", Key: []string{"username", "email"}},
		{Name: "videos", Key: []string{"video_id"}},
		{Name: "categories", Key: []string{"category_id"}},
		{Name: "video_categories", Key: []string{"video_id", "category_id"}},
		{Name: "comments", Key: []string{"comment_id"}},
		{Name: "likes", Key: []string{"video_id", "user_id"}},
		{Name: "subscriptions", Key: []string{"subscriber_id", "subscribed_to_id"}},
		{Name: "playlists", Key: []string{"playlist_id"}},
		{Name: "playlist_videos", Key: []string{"playlist_id", "video_id"}},
	} {
		core.Register(desc)
	}
}
