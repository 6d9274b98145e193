package formats

// threeGPArgs is the fixed low-bitrate mobile profile. It is not configurable.
var threeGPArgs = []string{
	"-r", "20",
	"-s", "352x288",
	"-b:v", "400k",
	"-c:a", "aac",
	"-ac", "1",
	"-ar", "8000",
	"-b:a", "24k",
}

// Audio targets drop any video stream so video sources extract cleanly.
var audioOnly = []string{"-vn"}

var defaultFormats = []Format{
	{Key: "png", Label: "PNG", Category: CategoryImage, MIME: "image/png", Extension: "png",
		MIMEHints: []string{"image/png", "image/apng"}, Extensions: []string{"png", "apng"}},
	{Key: "jpeg", Label: "JPEG", Category: CategoryImage, MIME: "image/jpeg", Extension: "jpg",
		MIMEHints: []string{"image/jpeg", "image/jpg", "image/pjpeg"}, Extensions: []string{"jpg", "jpeg", "jpe", "jfif"},
		Preset: Preset{Quality: 92}},
	{Key: "webp", Label: "WEBP", Category: CategoryImage, MIME: "image/webp", Extension: "webp",
		MIMEHints: []string{"image/webp"}, Extensions: []string{"webp"},
		Preset: Preset{Quality: 90}},
	{Key: "avif", Label: "AVIF", Category: CategoryImage, MIME: "image/avif", Extension: "avif",
		MIMEHints: []string{"image/avif"}, Extensions: []string{"avif"},
		Preset: Preset{Quality: 60, Speed: 8}},
	{Key: "tiff", Label: "TIFF", Category: CategoryImage, MIME: "image/tiff", Extension: "tiff",
		MIMEHints: []string{"image/tiff"}, Extensions: []string{"tif", "tiff"}},
	{Key: "bmp", Label: "BMP", Category: CategoryImage, MIME: "image/bmp", Extension: "bmp",
		MIMEHints: []string{"image/bmp", "image/x-bmp", "image/x-ms-bmp"}, Extensions: []string{"bmp"}},
	{Key: "ico", Label: "ICO", Category: CategoryImage, MIME: "image/x-icon", Extension: "ico",
		MIMEHints: []string{"image/x-icon", "image/vnd.microsoft.icon"}, Extensions: []string{"ico"}},
	{Key: "gif", Label: "GIF", Category: CategoryImage, MIME: "image/gif", Extension: "gif",
		MIMEHints: []string{"image/gif"}, Extensions: []string{"gif"}},

	{Key: "mp3", Label: "MP3", Category: CategoryAudio, MIME: "audio/mpeg", Extension: "mp3",
		MIMEHints: []string{"audio/mpeg", "audio/mp3"}, Extensions: []string{"mp3"},
		Preset: Preset{Args: audioOnly}},
	{Key: "wav", Label: "WAV", Category: CategoryAudio, MIME: "audio/wav", Extension: "wav",
		MIMEHints: []string{"audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave"}, Extensions: []string{"wav"},
		Preset: Preset{Args: audioOnly}},
	{Key: "ogg", Label: "OGG", Category: CategoryAudio, MIME: "audio/ogg", Extension: "ogg",
		MIMEHints: []string{"audio/ogg", "application/ogg"}, Extensions: []string{"ogg", "oga"},
		Preset: Preset{Args: audioOnly}},
	{Key: "flac", Label: "FLAC", Category: CategoryAudio, MIME: "audio/flac", Extension: "flac",
		MIMEHints: []string{"audio/flac", "audio/x-flac"}, Extensions: []string{"flac"},
		Preset: Preset{Args: audioOnly}},
	{Key: "aac", Label: "AAC", Category: CategoryAudio, MIME: "audio/aac", Extension: "aac",
		MIMEHints: []string{"audio/aac", "audio/x-aac"}, Extensions: []string{"aac"},
		Preset: Preset{Args: audioOnly}},

	{Key: "mp4", Label: "MP4", Category: CategoryVideo, MIME: "video/mp4", Extension: "mp4",
		MIMEHints: []string{"video/mp4"}, Extensions: []string{"mp4", "m4v"}},
	{Key: "webm", Label: "WEBM", Category: CategoryVideo, MIME: "video/webm", Extension: "webm",
		MIMEHints: []string{"video/webm", "audio/webm"}, Extensions: []string{"webm"}},
	{Key: "mov", Label: "MOV", Category: CategoryVideo, MIME: "video/quicktime", Extension: "mov",
		MIMEHints: []string{"video/quicktime"}, Extensions: []string{"mov", "qt"}},
	{Key: "mkv", Label: "MKV", Category: CategoryVideo, MIME: "video/x-matroska", Extension: "mkv",
		MIMEHints: []string{"video/x-matroska", "video/matroska"}, Extensions: []string{"mkv"}},
	{Key: "avi", Label: "AVI", Category: CategoryVideo, MIME: "video/x-msvideo", Extension: "avi",
		MIMEHints: []string{"video/x-msvideo", "video/avi", "video/msvideo"}, Extensions: []string{"avi"}},
	{Key: "flv", Label: "FLV", Category: CategoryVideo, MIME: "video/x-flv", Extension: "flv",
		MIMEHints: []string{"video/x-flv"}, Extensions: []string{"flv"}},
	{Key: "3gp", Label: "3GP", Category: CategoryVideo, MIME: "video/3gpp", Extension: "3gp",
		MIMEHints: []string{"video/3gpp", "audio/3gpp"}, Extensions: []string{"3gp"},
		Preset: Preset{Args: threeGPArgs}},
}

// Own-category targets come first, then cross-category ones: audio can be
// wrapped into video containers, and video can have its audio extracted.
var defaultTargets = map[Category][]string{
	CategoryImage: {"png", "jpeg", "webp", "avif", "tiff", "bmp", "ico", "gif"},
	CategoryAudio: {"mp3", "wav", "ogg", "flac", "aac", "mp4", "webm"},
	CategoryVideo: {"mp4", "webm", "mov", "mkv", "avi", "flv", "3gp", "mp3", "wav", "ogg"},
}
