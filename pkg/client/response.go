package client

// aria2 reports every numeric value as a decimal string; these types keep
// the wire representation.

// VersionInfo is the getVersion result.
type VersionInfo struct {
	Version         string   `json:"version"`
	EnabledFeatures []string `json:"enabledFeatures"`
}

// Status describes one download, from tellStatus and the tell* lists.
type Status struct {
	GID                    string      `json:"gid"`
	Status                 string      `json:"status"`
	TotalLength            string      `json:"totalLength"`
	CompletedLength        string      `json:"completedLength"`
	UploadLength           string      `json:"uploadLength"`
	Bitfield               string      `json:"bitfield,omitempty"`
	DownloadSpeed          string      `json:"downloadSpeed"`
	UploadSpeed            string      `json:"uploadSpeed"`
	InfoHash               string      `json:"infoHash,omitempty"`
	NumSeeders             string      `json:"numSeeders,omitempty"`
	Seeder                 string      `json:"seeder,omitempty"`
	PieceLength            string      `json:"pieceLength,omitempty"`
	NumPieces              string      `json:"numPieces,omitempty"`
	Connections            string      `json:"connections"`
	ErrorCode              string      `json:"errorCode,omitempty"`
	ErrorMessage           string      `json:"errorMessage,omitempty"`
	FollowedBy             []string    `json:"followedBy,omitempty"`
	Following              string      `json:"following,omitempty"`
	BelongsTo              string      `json:"belongsTo,omitempty"`
	Dir                    string      `json:"dir"`
	Files                  []File      `json:"files"`
	Bittorrent             *Bittorrent `json:"bittorrent,omitempty"`
	VerifiedLength         string      `json:"verifiedLength,omitempty"`
	VerifyIntegrityPending string      `json:"verifyIntegrityPending,omitempty"`
}

// Bittorrent is the torrent-specific part of a Status.
type Bittorrent struct {
	AnnounceList [][]string `json:"announceList,omitempty"`
	Comment      string     `json:"comment,omitempty"`
	CreationDate int64      `json:"creationDate,omitempty"`
	Mode         string     `json:"mode,omitempty"`
	Info         struct {
		Name string `json:"name,omitempty"`
	} `json:"info,omitempty"`
}

// URI is one source of a file.
type URI struct {
	URI    string `json:"uri"`
	Status string `json:"status"`
}

// File is one file of a download.
type File struct {
	Index           string `json:"index"`
	Path            string `json:"path"`
	Length          string `json:"length"`
	CompletedLength string `json:"completedLength"`
	Selected        string `json:"selected"`
	URIs            []URI  `json:"uris"`
}

// Peer is one BitTorrent peer, from getPeers.
type Peer struct {
	PeerID        string `json:"peerId"`
	IP            string `json:"ip"`
	Port          string `json:"port"`
	Bitfield      string `json:"bitfield"`
	AmChoking     string `json:"amChoking"`
	PeerChoking   string `json:"peerChoking"`
	DownloadSpeed string `json:"downloadSpeed"`
	UploadSpeed   string `json:"uploadSpeed"`
	Seeder        string `json:"seeder"`
}

// Server is one connected server, from getServers.
type Server struct {
	URI           string `json:"uri"`
	CurrentURI    string `json:"currentUri"`
	DownloadSpeed string `json:"downloadSpeed"`
}

// ServerGroup lists the servers serving one file index.
type ServerGroup struct {
	Index   string   `json:"index"`
	Servers []Server `json:"servers"`
}

// GlobalStat is the getGlobalStat result.
type GlobalStat struct {
	DownloadSpeed   string `json:"downloadSpeed"`
	UploadSpeed     string `json:"uploadSpeed"`
	NumActive       string `json:"numActive"`
	NumWaiting      string `json:"numWaiting"`
	NumStopped      string `json:"numStopped"`
	NumStoppedTotal string `json:"numStoppedTotal"`
}

// SessionInfo is the getSessionInfo result.
type SessionInfo struct {
	SessionID string `json:"sessionId"`
}
