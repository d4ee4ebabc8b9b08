package dictionary

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/keyweave/inputcore/internal/logger"
)

var log = logger.New("dictionary")

// ChunkLoader lazily loads a locale's word list from one or more
// hunspell-style .dic chunk files: a decimal word-count header line
// followed by one word per line, each optionally carrying hunspell
// affix-class flags after a '/' (e.g. "running/ABC"). Flags are parsed
// off but not interpreted: the Dictionary contract only needs
// lookup/spellcheck/suggest over base word forms, not hunspell's own
// morphological generation.
type ChunkLoader struct {
	dirPath      string
	chunkSize    int
	maxWords     int
	loadedChunks map[int]bool
	chunkWords   map[int]map[string]int // which words came from which chunk
	trie         *patricia.Trie
	wordFreqs    map[string]int
	totalWords   int
	maxFrequency int
	mu           sync.RWMutex
	loadingCh    chan int
	done         chan struct{}
	errorCount   map[int]int
	maxRetries   int

	// onChunkLoaded, if set, is invoked after each chunk finishes
	// loading (outside the loader's lock), so a caller holding a
	// derived index — LocaleDictionary's accent-fold trie — can refresh
	// itself instead of freezing on whatever was loaded at construction
	// time.
	onChunkLoaded func()
}

// SetOnChunkLoaded registers fn to run after every successful chunk
// load, including ones queued by the background loader.
func (cl *ChunkLoader) SetOnChunkLoaded(fn func()) {
	cl.mu.Lock()
	cl.onChunkLoaded = fn
	cl.mu.Unlock()
}

func (cl *ChunkLoader) notifyChunkLoaded() {
	cl.mu.RLock()
	fn := cl.onChunkLoaded
	cl.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// ChunkInfo contains metadata about a chunk file.
type ChunkInfo struct {
	ChunkID   int
	Filename  string
	WordCount int
	Exists    bool
}

// LoaderStats provides statistics about the loading process.
type LoaderStats struct {
	TotalWords      int
	LoadedWords     int
	LoadedChunks    int
	AvailableChunks int
	MaxFrequency    int
	IsLoading       bool
}

// NewChunkLoader creates a new lazy chunk loader over dirPath.
func NewChunkLoader(dirPath string, chunkSize, maxWords int) *ChunkLoader {
	return &ChunkLoader{
		dirPath:      dirPath,
		chunkSize:    chunkSize,
		maxWords:     maxWords,
		loadedChunks: make(map[int]bool),
		chunkWords:   make(map[int]map[string]int),
		trie:         patricia.NewTrie(),
		wordFreqs:    make(map[string]int),
		loadingCh:    make(chan int, 10),
		done:         make(chan struct{}),
		errorCount:   make(map[int]int),
		maxRetries:   3,
	}
}

// GetAvailableChunks scans the directory for available .dic chunk files.
func (cl *ChunkLoader) GetAvailableChunks() ([]ChunkInfo, error) {
	pattern := filepath.Join(cl.dirPath, "dict_*.dic")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for chunk files: %w", err)
	}

	var chunks []ChunkInfo
	for _, file := range files {
		basename := filepath.Base(file)
		// Extract chunk ID from filename (dict_0001.dic -> 1)
		if strings.HasPrefix(basename, "dict_") && strings.HasSuffix(basename, ".dic") {
			idStr := strings.TrimPrefix(basename, "dict_")
			idStr = strings.TrimSuffix(idStr, ".dic")
			if chunkID, err := strconv.Atoi(idStr); err == nil {
				if err := ValidateFileFormat(file, FormatHunspellDic); err != nil {
					log.Warnf("Skipping malformed chunk file %s: %v", file, err)
					continue
				}
				wordCount, err := cl.getChunkWordCount(file)
				if err != nil {
					log.Warnf("Failed to get word count for chunk %s: %v", file, err)
					wordCount = 0
				}
				chunks = append(chunks, ChunkInfo{
					ChunkID:   chunkID,
					Filename:  file,
					WordCount: wordCount,
					Exists:    true,
				})
			}
		}
	}

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].ChunkID < chunks[j].ChunkID
	})

	return chunks, nil
}

// getChunkWordCount reads the declared word count from a .dic file's
// first line, the header hunspell's own .dic files carry.
func (cl *ChunkLoader) getChunkWordCount(filename string) (int, error) {
	file, err := os.Open(filename)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		return 0, fmt.Errorf("empty dictionary file")
	}
	count, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return 0, fmt.Errorf("invalid word count header %q: %w", scanner.Text(), err)
	}
	return count, nil
}

// StartLazyLoading begins the lazy loading process.
func (cl *ChunkLoader) StartLazyLoading() error {
	chunks, err := cl.GetAvailableChunks()
	if err != nil {
		return fmt.Errorf("failed to get available chunks: %w", err)
	}

	if len(chunks) == 0 {
		return fmt.Errorf("no chunk files found in %s", cl.dirPath)
	}

	log.Debugf("Found %d chunk files", len(chunks))

	go cl.backgroundLoader()

	wordsToLoad := cl.maxWords
	if wordsToLoad == 0 {
		for _, chunk := range chunks {
			wordsToLoad += chunk.WordCount
		}
	}

	loadedWords := 0
	for _, chunk := range chunks {
		if loadedWords >= wordsToLoad {
			break
		}

		select {
		case cl.loadingCh <- chunk.ChunkID:
			log.Debugf("Queued chunk %d for loading", chunk.ChunkID)
		case <-time.After(100 * time.Millisecond):
			log.Warnf("Loading queue full, chunk %d will be loaded later", chunk.ChunkID)
		}

		loadedWords += chunk.WordCount
	}

	return nil
}

// backgroundLoader runs in a goroutine and loads chunks from the queue.
func (cl *ChunkLoader) backgroundLoader() {
	for {
		select {
		case chunkID := <-cl.loadingCh:
			if err := cl.loadChunk(chunkID); err != nil {
				log.Errorf("Failed to load chunk %d: %v", chunkID, err)

				cl.mu.Lock()
				cl.errorCount[chunkID]++
				errorCount := cl.errorCount[chunkID]
				cl.mu.Unlock()

				if errorCount < cl.maxRetries {
					log.Debugf("Retrying chunk %d (attempt %d/%d)", chunkID, errorCount+1, cl.maxRetries)
					go func(id int) {
						time.Sleep(time.Duration(errorCount) * time.Second)
						select {
						case cl.loadingCh <- id:
						case <-cl.done:
						}
					}(chunkID)
				} else {
					log.Errorf("Chunk %d failed %d times, giving up", chunkID, cl.maxRetries)
				}
			} else {
				log.Debugf("Successfully loaded chunk %d", chunkID)
				cl.notifyChunkLoaded()
			}
		case <-cl.done:
			return
		}
	}
}

// rankScore converts a zero-based line position into a descending
// score, so the word on line 0 of a .dic file scores highest. Most
// hunspell word lists are authored or sorted by descending commonality,
// so position stands in for the frequency a dedicated ranked corpus
// would carry explicitly.
func rankScore(position int) int {
	const maxScore = 65535
	if position >= maxScore {
		return 1
	}
	return maxScore - position
}

// loadChunk parses one .dic file: a word-count header line, then one
// word per line, each optionally carrying hunspell affix flags after a
// '/' that are stripped and discarded.
func (cl *ChunkLoader) loadChunk(chunkID int) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.loadedChunks[chunkID] {
		return nil // Already loaded
	}

	filename := filepath.Join(cl.dirPath, fmt.Sprintf("dict_%04d.dic", chunkID))
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open chunk file %s: %w", filename, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		return fmt.Errorf("chunk %d: empty file", chunkID)
	}
	declared, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return fmt.Errorf("failed to read chunk header: %w", err)
	}
	log.Debugf("Loading chunk %d, header declares %d words", chunkID, declared)

	count := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		word := line
		if slash := strings.IndexByte(line, '/'); slash >= 0 {
			word = line[:slash]
		}
		if word == "" {
			continue
		}

		score := rankScore(count)

		cl.trie.Insert(patricia.Prefix(word), score)
		cl.wordFreqs[word] = score

		if cl.chunkWords[chunkID] == nil {
			cl.chunkWords[chunkID] = make(map[string]int)
		}
		cl.chunkWords[chunkID][word] = score

		cl.totalWords++
		if score > cl.maxFrequency {
			cl.maxFrequency = score
		}

		count++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to scan chunk %d: %w", chunkID, err)
	}

	cl.loadedChunks[chunkID] = true
	log.Debugf("Chunk %d loaded: %d words", chunkID, count)
	return nil
}

// UnloadChunk removes a specific chunk from memory.
func (cl *ChunkLoader) UnloadChunk(chunkID int) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if !cl.loadedChunks[chunkID] {
		return fmt.Errorf("chunk %d is not loaded", chunkID)
	}

	log.Debugf("Unloading chunk %d", chunkID)

	delete(cl.loadedChunks, chunkID)

	chunkWords, exists := cl.chunkWords[chunkID]
	if !exists {
		return fmt.Errorf("chunk %d word data not found", chunkID)
	}

	for word := range chunkWords {
		delete(cl.wordFreqs, word)
		cl.totalWords--
	}

	delete(cl.chunkWords, chunkID)

	cl.rebuildTrie()

	log.Debugf("Successfully unloaded chunk %d", chunkID)
	return nil
}

// rebuildTrie reconstructs the trie from currently loaded chunks.
func (cl *ChunkLoader) rebuildTrie() {
	cl.trie = patricia.NewTrie()
	cl.maxFrequency = 0

	for chunkID, loaded := range cl.loadedChunks {
		if !loaded {
			continue
		}

		chunkWords, exists := cl.chunkWords[chunkID]
		if !exists {
			continue
		}

		for word, freq := range chunkWords {
			cl.trie.Insert(patricia.Prefix(word), freq)
			if freq > cl.maxFrequency {
				cl.maxFrequency = freq
			}
		}
	}

	log.Debugf("Trie rebuilt with %d loaded chunks", len(cl.loadedChunks))
}

// GetTrie returns the loaded trie (thread-safe).
func (cl *ChunkLoader) GetTrie() *patricia.Trie {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return cl.trie
}

// GetWordFreqs returns a copy of the word frequency map (thread-safe).
func (cl *ChunkLoader) GetWordFreqs() map[string]int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	freqs := make(map[string]int, len(cl.wordFreqs))
	for k, v := range cl.wordFreqs {
		freqs[k] = v
	}
	return freqs
}

// GetStats returns current loading statistics.
func (cl *ChunkLoader) GetStats() LoaderStats {
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	chunks, _ := cl.GetAvailableChunks()
	availableChunks := len(chunks)
	loadedChunks := len(cl.loadedChunks)

	return LoaderStats{
		TotalWords:      cl.totalWords,
		LoadedWords:     cl.totalWords,
		LoadedChunks:    loadedChunks,
		AvailableChunks: availableChunks,
		MaxFrequency:    cl.maxFrequency,
		IsLoading:       len(cl.loadingCh) > 0,
	}
}

// Stop stops the background loading process.
func (cl *ChunkLoader) Stop() {
	close(cl.done)
}

// RequestMoreChunks queues additional chunks for loading.
func (cl *ChunkLoader) RequestMoreChunks(additionalWords int) error {
	chunks, err := cl.GetAvailableChunks()
	if err != nil {
		return err
	}

	wordsToLoad := 0
	for _, chunk := range chunks {
		cl.mu.RLock()
		alreadyLoaded := cl.loadedChunks[chunk.ChunkID]
		cl.mu.RUnlock()

		if !alreadyLoaded {
			select {
			case cl.loadingCh <- chunk.ChunkID:
				log.Debugf("Queued additional chunk %d for loading", chunk.ChunkID)
				wordsToLoad += chunk.WordCount
				if wordsToLoad >= additionalWords {
					break
				}
			default:
				log.Warnf("Loading queue full, cannot queue chunk %d", chunk.ChunkID)
			}
		}
	}

	return nil
}

// LoadSpecificChunk loads a specific chunk by ID.
func (cl *ChunkLoader) LoadSpecificChunk(chunkID int) error {
	cl.mu.RLock()
	alreadyLoaded := cl.loadedChunks[chunkID]
	cl.mu.RUnlock()

	if alreadyLoaded {
		return nil // Already loaded
	}

	if err := cl.loadChunk(chunkID); err != nil {
		return err
	}
	cl.notifyChunkLoaded()
	return nil
}

// GetLoadedChunkIDs returns a slice of currently loaded chunk IDs.
func (cl *ChunkLoader) GetLoadedChunkIDs() []int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	var loadedIDs []int
	for chunkID, loaded := range cl.loadedChunks {
		if loaded {
			loadedIDs = append(loadedIDs, chunkID)
		}
	}

	sort.Ints(loadedIDs)
	return loadedIDs
}

// GetAvailableChunkCount returns the total number of available chunk files.
func (cl *ChunkLoader) GetAvailableChunkCount() (int, error) {
	chunks, err := cl.GetAvailableChunks()
	if err != nil {
		return 0, err
	}
	return len(chunks), nil
}
