package stability

// luaBody is the debounce/cooldown state transition as a single atomic
// Redis script:
//
//	KEYS[1] = stability key
//	ARGV[1] = ff
//	ARGV[2] = ff_threshold
//	ARGV[3] = stability_scans
//	ARGV[4] = cooldown_seconds
//	ARGV[5] = delta_ff_min
//	ARGV[6] = now (unix seconds)
//	ARGV[7] = ttl_seconds
//
// Returns {should_alert (0/1), reason}.
const luaBody = `
local key = KEYS[1]
local ff = tonumber(ARGV[1])
local ff_threshold = tonumber(ARGV[2])
local stability_scans = tonumber(ARGV[3])
local cooldown_seconds = tonumber(ARGV[4])
local delta_ff_min = tonumber(ARGV[5])
local now = tonumber(ARGV[6])
local ttl = tonumber(ARGV[7])

local exists = redis.call('EXISTS', key)
if exists == 0 then
  redis.call('HSET', key, 'last_ff', ff, 'consecutive_above', 1)
  redis.call('EXPIRE', key, ttl)
  return {0, 'first_scan'}
end

local consecutive = tonumber(redis.call('HGET', key, 'consecutive_above')) or 0
local last_alert_ts = redis.call('HGET', key, 'last_alert_ts')
local last_alert_ff = redis.call('HGET', key, 'last_alert_ff')

if ff >= ff_threshold then
  consecutive = consecutive + 1

  if consecutive < stability_scans then
    redis.call('HSET', key, 'last_ff', ff, 'consecutive_above', consecutive)
    redis.call('EXPIRE', key, ttl)
    return {0, 'needs_stability'}
  end

  if last_alert_ts and last_alert_ts ~= false and (now - tonumber(last_alert_ts)) < cooldown_seconds then
    redis.call('HSET', key, 'last_ff', ff, 'consecutive_above', consecutive)
    redis.call('EXPIRE', key, ttl)
    return {0, 'cooldown'}
  end

  if last_alert_ff and last_alert_ff ~= false and (ff - tonumber(last_alert_ff)) < delta_ff_min then
    redis.call('HSET', key, 'last_ff', ff, 'consecutive_above', consecutive)
    redis.call('EXPIRE', key, ttl)
    return {0, 'delta_too_small'}
  end

  redis.call('HSET', key, 'last_ff', ff, 'consecutive_above', consecutive, 'last_alert_ts', now, 'last_alert_ff', ff)
  redis.call('EXPIRE', key, ttl)
  return {1, 'ok'}
end

redis.call('HSET', key, 'last_ff', ff, 'consecutive_above', 0)
redis.call('EXPIRE', key, ttl)
return {0, 'below_threshold'}
`
