package mediatype

func init() {
	for _, p := range []Profile{
		{Extension: ".mp4", ContentType: "video/mp4", Kind: KindVideo},
		{Extension: ".m4v", ContentType: "video/x-m4v", Kind: KindVideo},
		{Extension: ".webm", ContentType: "video/webm", Kind: KindVideo},
		{Extension: ".ogv", ContentType: "video/ogg", Kind: KindVideo},
		{Extension: ".ogg", ContentType: "video/ogg", Kind: KindVideo},
		{Extension: ".mkv", ContentType: "video/x-matroska", Kind: KindVideo},
		{Extension: ".mov", ContentType: "video/quicktime", Kind: KindVideo},
		{Extension: ".ts", ContentType: "video/mp2t", Kind: KindVideo},
		{Extension: ".m3u8", ContentType: "application/vnd.apple.mpegurl", Kind: KindVideo},
		{Extension: ".mp3", ContentType: "audio/mpeg", Kind: KindAudio},
		{Extension: ".m4a", ContentType: "audio/mp4", Kind: KindAudio},
		{Extension: ".oga", ContentType: "audio/ogg", Kind: KindAudio},
		{Extension: ".opus", ContentType: "audio/opus", Kind: KindAudio},
		{Extension: ".flac", ContentType: "audio/flac", Kind: KindAudio},
		{Extension: ".wav", ContentType: "audio/wav", Kind: KindAudio},
		{Extension: ".jpg", ContentType: "image/jpeg", Kind: KindImage},
		{Extension: ".jpeg", ContentType: "image/jpeg", Kind: KindImage},
		{Extension: ".png", ContentType: "image/png", Kind: KindImage},
		{Extension: ".webp", ContentType: "image/webp", Kind: KindImage},
		{Extension: ".vtt", ContentType: "text/vtt", Kind: KindOther},
		{Extension: ".srt", ContentType: "application/x-subrip", Kind: KindOther},
	} {
		MustRegister(p)
	}
}
