package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"
)

// PositionHow selects the reference point of changePosition.
type PositionHow string

const (
	PosSet PositionHow = "POS_SET"
	PosCur PositionHow = "POS_CUR"
	PosEnd PositionHow = "POS_END"
)

// GetVersion returns the aria2 version and enabled features.
func (c *Client) GetVersion(ctx context.Context) (*VersionInfo, error) {
	var v VersionInfo
	if err := c.callInto(ctx, "aria2.getVersion", []any{}, 0, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// AddURI queues a download from uris and returns its gid. When hooks are
// given they are registered for that gid.
func (c *Client) AddURI(ctx context.Context, uris []string, options *TaskOptions, position *int, hooks *TaskHooks) (string, error) {
	params := []any{uris, optionsParam(options)}
	if position != nil {
		params = append(params, *position)
	}
	var gid string
	if err := c.callInto(ctx, "aria2.addUri", params, 0, &gid); err != nil {
		return "", err
	}
	c.SetHooks(gid, hooks)
	return gid, nil
}

// AddTorrent queues a download from raw torrent bytes (base64-encoded on the
// wire) and returns its gid.
func (c *Client) AddTorrent(ctx context.Context, torrent []byte, uris []string, options *TaskOptions, position *int, hooks *TaskHooks) (string, error) {
	if uris == nil {
		uris = []string{}
	}
	params := []any{base64.StdEncoding.EncodeToString(torrent), uris, optionsParam(options)}
	if position != nil {
		params = append(params, *position)
	}
	var gid string
	if err := c.callInto(ctx, "aria2.addTorrent", params, 0, &gid); err != nil {
		return "", err
	}
	c.SetHooks(gid, hooks)
	return gid, nil
}

// AddMetalink queues downloads from raw metalink bytes and returns the first
// gid.
func (c *Client) AddMetalink(ctx context.Context, metalink []byte, options *TaskOptions, position *int, hooks *TaskHooks) (string, error) {
	params := []any{base64.StdEncoding.EncodeToString(metalink), optionsParam(options)}
	if position != nil {
		params = append(params, *position)
	}
	var gid string
	if err := c.callInto(ctx, "aria2.addMetalink", params, 0, &gid); err != nil {
		return "", err
	}
	c.SetHooks(gid, hooks)
	return gid, nil
}

// doGID issues a method that takes only a gid and returns the gid back.
func (c *Client) doGID(ctx context.Context, method, gid string, timeout time.Duration) error {
	_, err := c.Call(ctx, method, []any{gid}, timeout)
	return err
}

// Remove stops a download. aria2 answers only once the download reacted, so
// the extended timeout applies.
func (c *Client) Remove(ctx context.Context, gid string) error {
	return c.doGID(ctx, "aria2.remove", gid, c.extendedTimeout)
}

// ForceRemove removes a download without waiting for cleanup.
func (c *Client) ForceRemove(ctx context.Context, gid string) error {
	return c.doGID(ctx, "aria2.forceRemove", gid, 0)
}

// Pause pauses a download; extended timeout, as with Remove.
func (c *Client) Pause(ctx context.Context, gid string) error {
	return c.doGID(ctx, "aria2.pause", gid, c.extendedTimeout)
}

// PauseAll pauses every active or waiting download.
func (c *Client) PauseAll(ctx context.Context) error {
	_, err := c.Call(ctx, "aria2.pauseAll", []any{}, c.extendedTimeout)
	return err
}

// ForcePause pauses a download without waiting.
func (c *Client) ForcePause(ctx context.Context, gid string) error {
	return c.doGID(ctx, "aria2.forcePause", gid, 0)
}

// ForcePauseAll pauses everything without waiting.
func (c *Client) ForcePauseAll(ctx context.Context) error {
	_, err := c.Call(ctx, "aria2.forcePauseAll", []any{}, 0)
	return err
}

// Unpause resumes a paused download.
func (c *Client) Unpause(ctx context.Context, gid string) error {
	return c.doGID(ctx, "aria2.unpause", gid, 0)
}

// UnpauseAll resumes every paused download.
func (c *Client) UnpauseAll(ctx context.Context) error {
	_, err := c.Call(ctx, "aria2.unpauseAll", []any{}, 0)
	return err
}

// TellStatus returns the full status of one download.
func (c *Client) TellStatus(ctx context.Context, gid string) (*Status, error) {
	var s Status
	if err := c.callInto(ctx, "aria2.tellStatus", []any{gid}, 0, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CustomTellStatus returns only the requested status keys.
func (c *Client) CustomTellStatus(ctx context.Context, gid string, keys []string) (map[string]json.RawMessage, error) {
	params := []any{gid}
	if keys != nil {
		params = append(params, keys)
	}
	var m map[string]json.RawMessage
	if err := c.callInto(ctx, "aria2.tellStatus", params, 0, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// GetURIs lists the URIs of a download.
func (c *Client) GetURIs(ctx context.Context, gid string) ([]URI, error) {
	var uris []URI
	if err := c.callInto(ctx, "aria2.getUris", []any{gid}, 0, &uris); err != nil {
		return nil, err
	}
	return uris, nil
}

// GetFiles lists the files of a download.
func (c *Client) GetFiles(ctx context.Context, gid string) ([]File, error) {
	var files []File
	if err := c.callInto(ctx, "aria2.getFiles", []any{gid}, 0, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// GetPeers lists the BitTorrent peers of a download.
func (c *Client) GetPeers(ctx context.Context, gid string) ([]Peer, error) {
	var peers []Peer
	if err := c.callInto(ctx, "aria2.getPeers", []any{gid}, 0, &peers); err != nil {
		return nil, err
	}
	return peers, nil
}

// GetServers lists the currently connected servers of a download.
func (c *Client) GetServers(ctx context.Context, gid string) ([]ServerGroup, error) {
	var groups []ServerGroup
	if err := c.callInto(ctx, "aria2.getServers", []any{gid}, 0, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// TellActive lists active downloads.
func (c *Client) TellActive(ctx context.Context) ([]Status, error) {
	var list []Status
	if err := c.callInto(ctx, "aria2.tellActive", []any{}, 0, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// TellWaiting lists waiting downloads in the given window.
func (c *Client) TellWaiting(ctx context.Context, offset, num int) ([]Status, error) {
	var list []Status
	if err := c.callInto(ctx, "aria2.tellWaiting", []any{offset, num}, 0, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// TellStopped lists stopped downloads in the given window.
func (c *Client) TellStopped(ctx context.Context, offset, num int) ([]Status, error) {
	var list []Status
	if err := c.callInto(ctx, "aria2.tellStopped", []any{offset, num}, 0, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// CustomTellActive lists active downloads with only the requested keys.
func (c *Client) CustomTellActive(ctx context.Context, keys []string) ([]map[string]json.RawMessage, error) {
	params := []any{}
	if keys != nil {
		params = append(params, keys)
	}
	var list []map[string]json.RawMessage
	if err := c.callInto(ctx, "aria2.tellActive", params, 0, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) customTellMulti(ctx context.Context, method string, offset, num int, keys []string) ([]map[string]json.RawMessage, error) {
	params := []any{offset, num}
	if keys != nil {
		params = append(params, keys)
	}
	var list []map[string]json.RawMessage
	if err := c.callInto(ctx, method, params, 0, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// CustomTellWaiting lists waiting downloads with only the requested keys.
func (c *Client) CustomTellWaiting(ctx context.Context, offset, num int, keys []string) ([]map[string]json.RawMessage, error) {
	return c.customTellMulti(ctx, "aria2.tellWaiting", offset, num, keys)
}

// CustomTellStopped lists stopped downloads with only the requested keys.
func (c *Client) CustomTellStopped(ctx context.Context, offset, num int, keys []string) ([]map[string]json.RawMessage, error) {
	return c.customTellMulti(ctx, "aria2.tellStopped", offset, num, keys)
}

// ChangePosition moves a download in the waiting queue and returns the
// resulting position.
func (c *Client) ChangePosition(ctx context.Context, gid string, pos int, how PositionHow) (int, error) {
	var result int
	if err := c.callInto(ctx, "aria2.changePosition", []any{gid, pos, how}, 0, &result); err != nil {
		return 0, err
	}
	return result, nil
}

// ChangeURI edits the URIs of one file of a download. It returns the number
// of URIs deleted and added.
func (c *Client) ChangeURI(ctx context.Context, gid string, fileIndex int, delURIs, addURIs []string, position *int) (deleted, added int, err error) {
	if delURIs == nil {
		delURIs = []string{}
	}
	if addURIs == nil {
		addURIs = []string{}
	}
	params := []any{gid, fileIndex, delURIs, addURIs}
	if position != nil {
		params = append(params, *position)
	}
	var pair [2]int
	if err := c.callInto(ctx, "aria2.changeUri", params, 0, &pair); err != nil {
		return 0, 0, err
	}
	return pair[0], pair[1], nil
}

// GetOption returns the options of a download.
func (c *Client) GetOption(ctx context.Context, gid string) (*TaskOptions, error) {
	var opts TaskOptions
	if err := c.callInto(ctx, "aria2.getOption", []any{gid}, 0, &opts); err != nil {
		return nil, err
	}
	return &opts, nil
}

// ChangeOption updates the options of a download.
func (c *Client) ChangeOption(ctx context.Context, gid string, options *TaskOptions) error {
	_, err := c.Call(ctx, "aria2.changeOption", []any{gid, optionsParam(options)}, 0)
	return err
}

// GetGlobalOption returns the global options.
func (c *Client) GetGlobalOption(ctx context.Context) (*TaskOptions, error) {
	var opts TaskOptions
	if err := c.callInto(ctx, "aria2.getGlobalOption", []any{}, 0, &opts); err != nil {
		return nil, err
	}
	return &opts, nil
}

// ChangeGlobalOption updates the global options.
func (c *Client) ChangeGlobalOption(ctx context.Context, options *TaskOptions) error {
	_, err := c.Call(ctx, "aria2.changeGlobalOption", []any{optionsParam(options)}, 0)
	return err
}

// GetGlobalStat returns aggregate transfer statistics.
func (c *Client) GetGlobalStat(ctx context.Context) (*GlobalStat, error) {
	var stat GlobalStat
	if err := c.callInto(ctx, "aria2.getGlobalStat", []any{}, 0, &stat); err != nil {
		return nil, err
	}
	return &stat, nil
}

// PurgeDownloadResult clears completed/error/removed results.
func (c *Client) PurgeDownloadResult(ctx context.Context) error {
	_, err := c.Call(ctx, "aria2.purgeDownloadResult", []any{}, 0)
	return err
}

// RemoveDownloadResult clears the result of one download.
func (c *Client) RemoveDownloadResult(ctx context.Context, gid string) error {
	_, err := c.Call(ctx, "aria2.removeDownloadResult", []any{gid}, 0)
	return err
}

// GetSessionInfo returns the session id.
func (c *Client) GetSessionInfo(ctx context.Context) (*SessionInfo, error) {
	var info SessionInfo
	if err := c.callInto(ctx, "aria2.getSessionInfo", []any{}, 0, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Shutdown asks aria2 to exit gracefully; extended timeout.
func (c *Client) Shutdown(ctx context.Context) error {
	_, err := c.Call(ctx, "aria2.shutdown", []any{}, c.extendedTimeout)
	return err
}

// ForceShutdown asks aria2 to exit immediately.
func (c *Client) ForceShutdown(ctx context.Context) error {
	_, err := c.Call(ctx, "aria2.forceShutdown", []any{}, 0)
	return err
}

// SaveSession writes the current session to aria2's session file.
func (c *Client) SaveSession(ctx context.Context) error {
	_, err := c.Call(ctx, "aria2.saveSession", []any{}, 0)
	return err
}
